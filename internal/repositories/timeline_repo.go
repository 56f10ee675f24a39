package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milestone-escrow/backend/internal/models"
)

type TimelineRepo struct {
	pool *pgxpool.Pool
}

func NewTimelineRepo(pool *pgxpool.Pool) *TimelineRepo {
	return &TimelineRepo{pool: pool}
}

func (r *TimelineRepo) Append(ctx context.Context, e *models.TimelineEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO timeline_entries (project_id, actor_id, event_type, message, tx_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.ProjectID, e.ActorID, e.EventType, e.Message, e.TxHash).Scan(&e.ID, &e.CreatedAt)
}

func (r *TimelineRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.TimelineEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, actor_id, event_type, message, tx_hash, created_at
		FROM timeline_entries WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ActorID, &e.EventType, &e.Message, &e.TxHash, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
