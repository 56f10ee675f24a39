package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditSignIn         = "sign_in"
	AuditUserInvited    = "user_invited"
	AuditMfaOverrideUse = "mfa_override_used"
)

// AuditLog records security-relevant actions that are not part of a project timeline.
type AuditLog struct {
	ID          uuid.UUID      `json:"id"`
	ActorUserID *uuid.UUID     `json:"actor_user_id,omitempty"`
	ActorType   string         `json:"actor_type"` // user/admin/system
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    *uuid.UUID     `json:"entity_id,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
