package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project statuses
const (
	ProjectStatusInProgress     = "IN_PROGRESS"
	ProjectStatusDraftSubmitted = "DRAFT_SUBMITTED"
	ProjectStatusReleased       = "RELEASED"
	ProjectStatusRefunded       = "REFUNDED"
	ProjectStatusSplit          = "SPLIT"
)

// Valid state transitions: from -> []to
var ValidProjectTransitions = map[string][]string{
	ProjectStatusInProgress:     {ProjectStatusDraftSubmitted},
	ProjectStatusDraftSubmitted: {ProjectStatusReleased, ProjectStatusRefunded, ProjectStatusSplit},
	ProjectStatusReleased:       {},
	ProjectStatusRefunded:       {},
	ProjectStatusSplit:          {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidProjectTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no escrow-mutating operation may run against the project.
func IsTerminalStatus(status string) bool {
	switch status {
	case ProjectStatusReleased, ProjectStatusRefunded, ProjectStatusSplit:
		return true
	}
	return false
}

type Project struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	EscrowAddress *string         `json:"escrow_address,omitempty"`
	EscrowPaused  bool            `json:"escrow_paused"`
	QuotedAmount  decimal.Decimal `json:"quoted_amount"`
	DepositAmount decimal.Decimal `json:"deposit_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	ReviewDueAt   *time.Time      `json:"review_due_at,omitempty"`
	AdminID       uuid.UUID       `json:"admin_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Project) HasEscrow() bool {
	return p.EscrowAddress != nil && *p.EscrowAddress != ""
}

// EscrowTotal is the amount held by the contract once both milestones are funded.
func (p *Project) EscrowTotal() decimal.Decimal {
	return p.DepositAmount.Add(p.BalanceAmount)
}

// ReviewExpired reports whether automatic release is eligible at now.
func (p *Project) ReviewExpired(now time.Time) bool {
	return p.ReviewDueAt != nil && !p.ReviewDueAt.After(now)
}
