// Package storage defines the credential-source contracts.
package storage

import (
	"context"
	"errors"

	"github.com/vietddude/cycler/internal/core/domain"
)

// ErrNoWallets is returned when a source holds no credentials. The runner
// treats it as a fatal startup condition.
var ErrNoWallets = errors.New("no wallets configured")

// SignerFactory builds a signing capability from stored key material.
// Provided by protocol-specific code; the core never inspects secrets.
type SignerFactory func(secret string) (domain.Signer, error)

// WalletRepository handles wallet credential storage.
type WalletRepository interface {
	// GetAll returns all wallets in a stable order.
	GetAll(ctx context.Context) ([]domain.Wallet, error)

	// Save stores one wallet credential.
	Save(ctx context.Context, address, secret, label string) error
}
