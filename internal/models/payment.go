package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentTypeDeposit = "DEPOSIT"
	PaymentTypeBalance = "BALANCE"
	PaymentTypeRelease = "RELEASE"
	PaymentTypeRefund  = "REFUND"
	PaymentTypeSplit   = "SPLIT"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusConfirmed = "CONFIRMED"
	PaymentStatusFailed    = "FAILED"
)

type Payment struct {
	ID          uuid.UUID       `json:"id"`
	ProjectID   uuid.UUID       `json:"project_id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	TxHash      *string         `json:"tx_hash,omitempty"`
	Method      *string         `json:"method,omitempty"`
	ProviderRef *string         `json:"provider_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
