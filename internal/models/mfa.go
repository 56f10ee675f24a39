package models

import (
	"time"

	"github.com/google/uuid"
)

type MfaCode struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	CodeHash  string     `json:"-"`
	Purpose   *string    `json:"purpose,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the code may still be consumed at now.
func (c *MfaCode) Usable(now time.Time) bool {
	return c.UsedAt == nil && c.ExpiresAt.After(now)
}

// MatchesPurpose: a code issued with a purpose only matches requests carrying
// the same purpose; an unscoped code matches any request.
func (c *MfaCode) MatchesPurpose(purpose string) bool {
	if c.Purpose == nil {
		return true
	}
	return *c.Purpose == purpose
}
