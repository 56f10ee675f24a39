package models

import (
	"time"

	"github.com/google/uuid"
)

// Timeline event types
const (
	TimelineEscrowDeployed        = "ESCROW_DEPLOYED"
	TimelineDepositFunded         = "DEPOSIT_FUNDED"
	TimelineBalanceFunded         = "BALANCE_FUNDED"
	TimelineFundsReleased         = "FUNDS_RELEASED"
	TimelineFundsRefunded         = "FUNDS_REFUNDED"
	TimelineFundsSplit            = "FUNDS_SPLIT"
	TimelineReviewExpiredReleased = "REVIEW_EXPIRED_RELEASED"
	TimelineEscrowPaused          = "ESCROW_PAUSED"
	TimelineEscrowUnpaused        = "ESCROW_UNPAUSED"
	TimelineDraftProofAnchored    = "DRAFT_PROOF_ANCHORED"
)

// TimelineEntry is append-only; ActorID is nil for system actions.
type TimelineEntry struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	EventType string     `json:"event_type"`
	Message   string     `json:"message"`
	TxHash    *string    `json:"tx_hash,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Transition is the unit of work persisted after a confirmed escrow settlement:
// status change, payment, timeline entry and notification commit together or not at all.
type Transition struct {
	ProjectID    uuid.UUID
	FromStatus   string
	ToStatus     string
	Payment      Payment
	Timeline     TimelineEntry
	Notification Notification
}
