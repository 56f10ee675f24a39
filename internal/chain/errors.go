package chain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHash    = errors.New("hash must be a 64-character hex sha-256 digest")
	ErrInvalidPercent = errors.New("client percent must be between 0 and 100")
	ErrInvalidAddress = errors.New("invalid ledger address")
	ErrInvalidKey     = errors.New("invalid signing key")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNoBytecode     = errors.New("escrow bytecode is not loaded")
	ErrReverted       = errors.New("ledger transaction reverted")
	ErrUnconfirmed    = errors.New("ledger transaction submitted but not confirmed")
)

// UnconfirmedError marks a transaction that was broadcast but whose receipt did
// not arrive before the confirmation deadline. The outcome is unknown; callers
// must treat it as retryable and never as success.
type UnconfirmedError struct {
	Op     string
	TxHash string
	Err    error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("%s: tx %s not confirmed: %v", e.Op, e.TxHash, e.Err)
}

func (e *UnconfirmedError) Is(target error) bool {
	return target == ErrUnconfirmed
}

func (e *UnconfirmedError) Unwrap() error {
	return e.Err
}
