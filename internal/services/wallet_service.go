package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/chain"
	"github.com/milestone-escrow/backend/internal/metrics"
	"github.com/milestone-escrow/backend/internal/models"
	"github.com/milestone-escrow/backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WalletStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error)
	Create(ctx context.Context, w *models.CustodialWallet) (*models.CustodialWallet, error)
	MarkFunded(ctx context.Context, userID uuid.UUID) error
}

type WalletLedger interface {
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	SendValue(ctx context.Context, fromKey, to string, amountWei *big.Int) (*chain.Receipt, error)
}

type WalletOptions struct {
	FunderKey    string
	MinBalance   decimal.Decimal
	TopUpAmount  decimal.Decimal
	TopUpTimeout time.Duration
}

// WalletService owns the per-user custodial wallets used to sign escrow calls.
type WalletService struct {
	store  WalletStore
	ledger WalletLedger
	opts   WalletOptions
	log    *zap.Logger

	inflight sync.Map // user id -> struct{}
	wg       sync.WaitGroup
}

func NewWalletService(store WalletStore, ledger WalletLedger, opts WalletOptions, log *zap.Logger) *WalletService {
	if opts.TopUpTimeout <= 0 {
		opts.TopUpTimeout = 3 * time.Minute
	}
	return &WalletService{store: store, ledger: ledger, opts: opts, log: log}
}

// EnsureWallet returns the user's wallet, generating one on first use.
func (s *WalletService) EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error) {
	w, err := s.store.GetByUser(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	generated, err := chain.GenerateWallet()
	if err != nil {
		return nil, err
	}
	w, err = s.store.Create(ctx, &models.CustodialWallet{
		UserID:        userID,
		Address:       generated.Address,
		PrivateKeyHex: generated.PrivateKeyHex,
	})
	if err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}

	s.log.Info("custodial wallet assigned",
		zap.String("user_id", userID.String()),
		zap.String("address", w.Address),
	)
	return w, nil
}

// SigningKey returns the private key of an already assigned wallet.
func (s *WalletService) SigningKey(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error) {
	w, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s has no wallet", ErrMissingSigningKey, userID)
		}
		return nil, err
	}
	if !w.HasKey() {
		return nil, fmt.Errorf("%w: wallet of user %s has no key", ErrMissingSigningKey, userID)
	}
	return w, nil
}

// EnsureFunded tops the wallet up in the background when its balance is
// under the operating minimum. Failures are logged and counted only.
func (s *WalletService) EnsureFunded(w *models.CustodialWallet) {
	if w == nil || s.opts.FunderKey == "" || !s.opts.TopUpAmount.IsPositive() {
		return
	}
	if _, busy := s.inflight.LoadOrStore(w.UserID, struct{}{}); busy {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Delete(w.UserID)

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.TopUpTimeout)
		defer cancel()

		if err := s.topUp(ctx, w); err != nil {
			metrics.WalletTopUpFailures.Inc()
			s.log.Warn("wallet top-up failed",
				zap.String("user_id", w.UserID.String()),
				zap.String("address", w.Address),
				zap.Error(err),
			)
		}
	}()
}

func (s *WalletService) topUp(ctx context.Context, w *models.CustodialWallet) error {
	balance, err := s.ledger.BalanceAt(ctx, w.Address)
	if err != nil {
		return err
	}
	if chain.FromWei(balance).GreaterThanOrEqual(s.opts.MinBalance) {
		return nil
	}

	receipt, err := s.ledger.SendValue(ctx, s.opts.FunderKey, w.Address, chain.ToWei(s.opts.TopUpAmount))
	if err != nil {
		return err
	}
	_ = s.store.MarkFunded(ctx, w.UserID)

	s.log.Info("wallet topped up",
		zap.String("user_id", w.UserID.String()),
		zap.String("address", w.Address),
		zap.String("amount", s.opts.TopUpAmount.String()),
		zap.String("tx_hash", receipt.TxHash),
	)
	return nil
}

// Wait blocks until background top-ups have finished.
func (s *WalletService) Wait() {
	s.wg.Wait()
}
