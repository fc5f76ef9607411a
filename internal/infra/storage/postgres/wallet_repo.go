package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/infra/storage"
)

// WalletRepo implements storage.WalletRepository using PostgreSQL.
type WalletRepo struct {
	db      *DB
	signers storage.SignerFactory
}

// NewWalletRepo creates a new PostgreSQL wallet repository. The signer
// factory turns stored key material into signing capabilities.
func NewWalletRepo(db *DB, signers storage.SignerFactory) *WalletRepo {
	return &WalletRepo{db: db, signers: signers}
}

type walletRow struct {
	ID        uint64    `db:"id"`
	Address   string    `db:"address"`
	Secret    string    `db:"secret"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}

// GetAll retrieves all wallets ordered by insertion.
func (r *WalletRepo) GetAll(ctx context.Context) ([]domain.Wallet, error) {
	var rows []walletRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, address, secret, label, created_at FROM wallets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]domain.Wallet, 0, len(rows))
	for _, row := range rows {
		signer, err := r.signers(row.Secret)
		if err != nil {
			return nil, fmt.Errorf("failed to build signer for %s: %w", row.Address, err)
		}
		wallets = append(wallets, domain.Wallet{
			ID:        row.ID,
			Address:   row.Address,
			Signer:    signer,
			Label:     row.Label,
			CreatedAt: row.CreatedAt,
		})
	}
	return wallets, nil
}

// Save stores one wallet credential, updating the secret on conflict.
func (r *WalletRepo) Save(ctx context.Context, address, secret, label string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (address, secret, label)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE SET secret = $2, label = $3`,
		address, secret, label)
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}
