package models

import (
	"time"

	"github.com/google/uuid"
)

// CustodialWallet is the per-user signing wallet, created lazily on first use.
type CustodialWallet struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Address       string     `json:"address"`
	PrivateKeyHex string     `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	LastFundedAt  *time.Time `json:"last_funded_at,omitempty"`
}

func (w *CustodialWallet) HasKey() bool {
	return w != nil && w.PrivateKeyHex != ""
}
