package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milestone-escrow/backend/internal/models"
)

type ChainEventRepo struct {
	pool *pgxpool.Pool
}

func NewChainEventRepo(pool *pgxpool.Pool) *ChainEventRepo {
	return &ChainEventRepo{pool: pool}
}

func (r *ChainEventRepo) Exists(ctx context.Context, projectID uuid.UUID, txHash, eventName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM chain_events WHERE project_id = $1 AND tx_hash = $2 AND event_name = $3)
	`, projectID, txHash, eventName).Scan(&exists)
	return exists, err
}

// Insert reports whether a new row was written. A concurrent duplicate is
// absorbed by the unique constraint.
func (r *ChainEventRepo) Insert(ctx context.Context, e *models.ChainEvent) (bool, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO chain_events (project_id, event_name, tx_hash, block_number, log_index, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id, tx_hash, event_name) DO NOTHING
	`, e.ProjectID, e.EventName, e.TxHash, int64(e.BlockNumber), int32(e.LogIndex), payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ChainEventRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ChainEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, event_name, tx_hash, block_number, log_index, payload, created_at
		FROM chain_events WHERE project_id = $1
		ORDER BY block_number, log_index
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ChainEvent
	for rows.Next() {
		var (
			e        models.ChainEvent
			block    int64
			logIndex int32
			payload  []byte
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.EventName, &e.TxHash, &block, &logIndex, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.BlockNumber = uint64(block)
		e.LogIndex = uint(logIndex)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, err
			}
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
