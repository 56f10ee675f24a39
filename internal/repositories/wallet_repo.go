package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/milestone-escrow/backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func (r *WalletRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*models.CustodialWallet, error) {
	var w models.CustodialWallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, address, private_key, created_at, last_funded_at
		FROM custodial_wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.Address, &w.PrivateKeyHex, &w.CreatedAt, &w.LastFundedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Create assigns a wallet to the user. If another request assigned one first,
// the existing wallet is returned and w is discarded.
func (r *WalletRepo) Create(ctx context.Context, w *models.CustodialWallet) (*models.CustodialWallet, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO custodial_wallets (user_id, address, private_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, w.UserID, w.Address, w.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	return r.GetByUser(ctx, w.UserID)
}

func (r *WalletRepo) MarkFunded(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE custodial_wallets SET last_funded_at = now() WHERE user_id = $1`, userID)
	return err
}
