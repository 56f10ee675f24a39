package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milestone-escrow/backend/internal/models"
)

const projectColumns = `
	id, title, status, escrow_address, escrow_paused,
	quoted_amount::text, deposit_amount::text, balance_amount::text,
	review_due_at, admin_id, client_id, created_at, updated_at`

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var (
		p                        models.Project
		quoted, deposit, balance string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Status, &p.EscrowAddress, &p.EscrowPaused,
		&quoted, &deposit, &balance,
		&p.ReviewDueAt, &p.AdminID, &p.ClientID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.QuotedAmount, err = parseAmount("quoted_amount", quoted); err != nil {
		return nil, err
	}
	if p.DepositAmount, err = parseAmount("deposit_amount", deposit); err != nil {
		return nil, err
	}
	if p.BalanceAmount, err = parseAmount("balance_amount", balance); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) listProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectStatusInProgress
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO projects (title, status, quoted_amount, deposit_amount, balance_amount, review_due_at, admin_id, client_id)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, p.Title, p.Status, p.QuotedAmount.String(), p.DepositAmount.String(), p.BalanceAmount.String(),
		p.ReviewDueAt, p.AdminID, p.ClientID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListWithEscrow returns every project that has a deployed contract.
func (r *ProjectRepo) ListWithEscrow(ctx context.Context) ([]models.Project, error) {
	return r.listProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE escrow_address IS NOT NULL
		ORDER BY created_at
	`)
}

// ListReviewOverdue selects the projects eligible for automatic release at now.
func (r *ProjectRepo) ListReviewOverdue(ctx context.Context, now time.Time) ([]models.Project, error) {
	return r.listProjects(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE status = $1
		  AND review_due_at IS NOT NULL AND review_due_at <= $2
		  AND escrow_paused = false
		  AND escrow_address IS NOT NULL
		ORDER BY review_due_at
	`, models.ProjectStatusDraftSubmitted, now)
}

// SetEscrowAddress stores the deployed contract address once and never overwrites it.
func (r *ProjectRepo) SetEscrowAddress(ctx context.Context, projectID uuid.UUID, address string, entry models.TimelineEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE projects SET escrow_address = $1, updated_at = now()
			WHERE id = $2 AND escrow_address IS NULL
		`, address, projectID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrEscrowAssigned
		}
		return insertTimeline(ctx, tx, &entry)
	})
}

// SetPaused mirrors the on-chain pause flag. Terminal projects are left untouched.
func (r *ProjectRepo) SetPaused(ctx context.Context, projectID uuid.UUID, paused bool, entry models.TimelineEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE projects SET escrow_paused = $1, updated_at = now()
			WHERE id = $2 AND status NOT IN ($3, $4, $5)
		`, paused, projectID, models.ProjectStatusReleased, models.ProjectStatusRefunded, models.ProjectStatusSplit)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleTransition
		}
		return insertTimeline(ctx, tx, &entry)
	})
}

// MarkDraftSubmitted opens the review window of an in-progress project.
func (r *ProjectRepo) MarkDraftSubmitted(ctx context.Context, projectID uuid.UUID, reviewDueAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE projects SET status = $1, review_due_at = $2, updated_at = now()
		WHERE id = $3 AND status = $4
	`, models.ProjectStatusDraftSubmitted, reviewDueAt, projectID, models.ProjectStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleTransition
	}
	return nil
}

// ApplyTransition persists a confirmed settlement: status, payment, timeline
// entry and notification in one transaction. The status update is guarded on
// the expected prior status and an unpaused escrow.
func (r *ProjectRepo) ApplyTransition(ctx context.Context, t *models.Transition) error {
	if !models.IsValidTransition(t.FromStatus, t.ToStatus) {
		return fmt.Errorf("invalid transition from %s to %s", t.FromStatus, t.ToStatus)
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE projects SET status = $1, updated_at = now()
			WHERE id = $2 AND status = $3 AND escrow_paused = false
		`, t.ToStatus, t.ProjectID, t.FromStatus)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleTransition
		}

		if err := insertPayment(ctx, tx, &t.Payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := insertTimeline(ctx, tx, &t.Timeline); err != nil {
			return fmt.Errorf("insert timeline: %w", err)
		}
		if err := insertNotification(ctx, tx, &t.Notification); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
}

// RecordPayment stores a funding payment together with its timeline entry.
func (r *ProjectRepo) RecordPayment(ctx context.Context, payment *models.Payment, entry *models.TimelineEntry) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertPayment(ctx, tx, payment); err != nil {
			return err
		}
		return insertTimeline(ctx, tx, entry)
	})
}

func (r *ProjectRepo) ListPayments(ctx context.Context, projectID uuid.UUID) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, type, status, amount::text, tx_hash, method, provider_ref, created_at
		FROM payments WHERE project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var (
			p      models.Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Type, &p.Status, &amount, &p.TxHash, &p.Method, &p.ProviderRef, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = parseAmount("amount", amount); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *ProjectRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func insertPayment(ctx context.Context, tx pgx.Tx, p *models.Payment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO payments (project_id, type, status, amount, tx_hash, method, provider_ref)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		RETURNING id, created_at
	`, p.ProjectID, p.Type, p.Status, p.Amount.String(), p.TxHash, p.Method, p.ProviderRef,
	).Scan(&p.ID, &p.CreatedAt)
}

func insertTimeline(ctx context.Context, tx pgx.Tx, e *models.TimelineEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO timeline_entries (project_id, actor_id, event_type, message, tx_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.ProjectID, e.ActorID, e.EventType, e.Message, e.TxHash,
	).Scan(&e.ID, &e.CreatedAt)
}

func insertNotification(ctx context.Context, tx pgx.Tx, n *models.Notification) error {
	return tx.QueryRow(ctx, `
		INSERT INTO notifications (user_id, project_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.UserID, n.ProjectID, n.Title, n.Body,
	).Scan(&n.ID, &n.CreatedAt)
}
