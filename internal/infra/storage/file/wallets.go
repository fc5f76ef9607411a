// Package file reads wallet credentials from a local key file, for runs
// without a database.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/infra/storage"
)

// WalletRepo implements storage.WalletRepository over a key file.
// Each line is "address,secret[,label]"; blank lines and # comments are
// skipped. The file is read once at construction.
type WalletRepo struct {
	wallets []domain.Wallet
}

// NewWalletRepo loads the key file.
func NewWalletRepo(path string, signers storage.SignerFactory) (*WalletRepo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	var wallets []domain.Wallet
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("key file line %d: expected address,secret", lineNo)
		}
		address := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		label := ""
		if len(parts) == 3 {
			label = strings.TrimSpace(parts[2])
		}

		signer, err := signers(secret)
		if err != nil {
			return nil, fmt.Errorf("key file line %d: %w", lineNo, err)
		}

		wallets = append(wallets, domain.Wallet{
			ID:      uint64(len(wallets) + 1),
			Address: address,
			Signer:  signer,
			Label:   label,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	return &WalletRepo{wallets: wallets}, nil
}

// GetAll returns the wallets in file order.
func (r *WalletRepo) GetAll(ctx context.Context) ([]domain.Wallet, error) {
	out := make([]domain.Wallet, len(r.wallets))
	copy(out, r.wallets)
	return out, nil
}

// Save is not supported for file-backed wallets.
func (r *WalletRepo) Save(ctx context.Context, address, secret, label string) error {
	return fmt.Errorf("file wallet source is read-only")
}
