package services

import (
	"errors"

	"github.com/milestone-escrow/backend/internal/repositories"
)

var (
	ErrTerminalStatus       = errors.New("project is settled, escrow operations are closed")
	ErrEscrowPaused         = errors.New("escrow is paused")
	ErrEscrowNotPaused      = errors.New("escrow is not paused")
	ErrNoEscrow             = errors.New("project has no deployed escrow")
	ErrAlreadyDeployed      = errors.New("escrow already deployed for project")
	ErrInvalidTransition    = errors.New("transition not allowed from current status")
	ErrMissingSigningKey    = errors.New("no signing key available")
	ErrForbidden            = errors.New("actor is not allowed to perform this action")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidCode          = errors.New("invalid or expired verification code")
	ErrLedger               = errors.New("ledger operation failed")
)

// Store-level conditions surfaced unchanged to callers.
var (
	ErrNotFound        = repositories.ErrNotFound
	ErrStaleTransition = repositories.ErrStaleTransition
)
