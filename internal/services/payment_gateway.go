package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodACH          PaymentMethod = "ACH"
	MethodWire         PaymentMethod = "WIRE"

	// MethodLedger marks a payment funded directly on chain from the payer's wallet.
	MethodLedger PaymentMethod = "LEDGER"
)

var fiatMethods = map[PaymentMethod]struct{}{
	MethodCard:         {},
	MethodBankTransfer: {},
	MethodACH:          {},
	MethodWire:         {},
}

// ParseMethod accepts the fiat methods case-insensitively, ignoring surrounding space.
func ParseMethod(raw string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := fiatMethods[m]
	return m, ok
}

type ChargeRequest struct {
	Method    PaymentMethod
	Amount    decimal.Decimal
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Purpose   string
}

// Acknowledgement is the processor's receipt for an accepted charge.
type Acknowledgement struct {
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type Processor interface {
	Process(ctx context.Context, req ChargeRequest) (*Acknowledgement, error)
}

// PaymentGateway validates fiat charges and hands them to a Processor.
type PaymentGateway struct {
	processor Processor
	log       *zap.Logger
}

func NewPaymentGateway(processor Processor, log *zap.Logger) *PaymentGateway {
	if processor == nil {
		processor = MockProcessor{}
	}
	return &PaymentGateway{processor: processor, log: log}
}

func (g *PaymentGateway) Charge(ctx context.Context, req ChargeRequest) (*Acknowledgement, error) {
	if _, ok := fiatMethods[req.Method]; !ok {
		return nil, ErrInvalidPaymentMethod
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("charge amount must be positive, got %s", req.Amount)
	}

	ack, err := g.processor.Process(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("payment processor: %w", err)
	}

	g.log.Info("payment processed",
		zap.String("project_id", req.ProjectID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("method", string(req.Method)),
		zap.String("amount", req.Amount.String()),
		zap.String("purpose", req.Purpose),
		zap.String("reference", ack.Reference),
	)
	return ack, nil
}

// MockProcessor accepts every charge. It stands in for a card or bank processor.
type MockProcessor struct{}

func (MockProcessor) Process(ctx context.Context, req ChargeRequest) (*Acknowledgement, error) {
	return ProcessMock(ctx, req.Method, req.Amount, req.ProjectID, req.UserID, req.Purpose)
}

func ProcessMock(_ context.Context, method PaymentMethod, amount decimal.Decimal, _, _ uuid.UUID, _ string) (*Acknowledgement, error) {
	return &Acknowledgement{
		Reference: "mock_" + uuid.NewString(),
		Status:    "succeeded",
		Method:    method,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}, nil
}
