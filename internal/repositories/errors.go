package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleTransition means the guarded status update matched no row: the
	// project moved, was paused, or was settled concurrently.
	ErrStaleTransition = errors.New("project state changed concurrently")
	ErrEscrowAssigned  = errors.New("project already has an escrow address")
	ErrCodeConsumed    = errors.New("verification code already consumed")
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// NUMERIC columns are read as text to keep full precision.
func parseAmount(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", column, s, err)
	}
	return d, nil
}
