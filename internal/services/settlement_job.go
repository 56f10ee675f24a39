package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/models"
	"go.uber.org/zap"
)

type OverdueProjectLister interface {
	ListReviewOverdue(ctx context.Context, now time.Time) ([]models.Project, error)
}

type SigningKeys interface {
	SigningKey(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error)
}

type AutoReleaser interface {
	AutoRelease(ctx context.Context, p *models.Project, admin *models.CustodialWallet) (*chain.Receipt, error)
}

type SettlementResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// SettlementJob releases escrows whose review period expired without a
// decision. Released projects leave the selection, so reruns are harmless.
type SettlementJob struct {
	projects OverdueProjectLister
	keys     SigningKeys
	escrow   AutoReleaser
	now      func() time.Time
	log      *zap.Logger
}

func NewSettlementJob(projects OverdueProjectLister, keys SigningKeys, escrow AutoReleaser, log *zap.Logger) *SettlementJob {
	return &SettlementJob{
		projects: projects,
		keys:     keys,
		escrow:   escrow,
		now:      time.Now,
		log:      log,
	}
}

func (j *SettlementJob) Run(ctx context.Context) (SettlementResult, error) {
	var res SettlementResult

	overdue, err := j.projects.ListReviewOverdue(ctx, j.now())
	if err != nil {
		metrics.SettlementRuns.WithLabelValues("error").Inc()
		return res, fmt.Errorf("select overdue projects: %w", err)
	}

	for i := range overdue {
		if ctx.Err() != nil {
			break
		}
		p := &overdue[i]
		if err := j.settleOne(ctx, p); err != nil {
			res.Skipped++
			metrics.SettlementSkipped.Inc()
			j.log.Warn("auto-release skipped",
				zap.String("project_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		res.Processed++
		metrics.SettlementProcessed.Inc()
	}

	metrics.SettlementRuns.WithLabelValues("ok").Inc()
	if len(overdue) > 0 {
		j.log.Info("settlement run finished",
			zap.Int("selected", len(overdue)),
			zap.Int("processed", res.Processed),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}

// settleOne isolates a single project: a panic is turned into an error.
func (j *SettlementJob) settleOne(ctx context.Context, p *models.Project) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	admin, err := j.keys.SigningKey(ctx, p.AdminID)
	if err != nil {
		return err
	}
	receipt, err := j.escrow.AutoRelease(ctx, p, admin)
	if err != nil {
		return err
	}

	j.log.Info("review expired, escrow released",
		zap.String("project_id", p.ID.String()),
		zap.String("tx_hash", receipt.TxHash),
	)
	return nil
}
