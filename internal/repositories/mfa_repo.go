package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milestone-escrow/backend/internal/models"
)

type MfaRepo struct {
	pool *pgxpool.Pool
}

func NewMfaRepo(pool *pgxpool.Pool) *MfaRepo {
	return &MfaRepo{pool: pool}
}

func (r *MfaRepo) Create(ctx context.Context, c *models.MfaCode) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO mfa_codes (user_id, code_hash, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.UserID, c.CodeHash, c.Purpose, c.ExpiresAt).Scan(&c.ID, &c.CreatedAt)
}

// FindLatestValid returns the newest unconsumed, unexpired code whose purpose is
// unset or equal to purpose.
func (r *MfaRepo) FindLatestValid(ctx context.Context, userID uuid.UUID, purpose string, now time.Time) (*models.MfaCode, error) {
	var c models.MfaCode
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, code_hash, purpose, expires_at, used_at, created_at
		FROM mfa_codes
		WHERE user_id = $1
		  AND used_at IS NULL
		  AND expires_at > $2
		  AND (purpose IS NULL OR purpose = $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, now, purpose).Scan(&c.ID, &c.UserID, &c.CodeHash, &c.Purpose, &c.ExpiresAt, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// MarkUsed consumes a code; a second consumer loses with ErrCodeConsumed.
func (r *MfaRepo) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE mfa_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`, now, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeConsumed
	}
	return nil
}
