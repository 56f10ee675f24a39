package services

import (
	"context"

	"github.com/milestone-escrow/backend/internal/models"
)

// Auditor persists security events. Writes are best-effort.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type nopAuditor struct{}

func (nopAuditor) Log(context.Context, models.AuditLog) error { return nil }
