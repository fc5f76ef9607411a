// Seeds the wallets table from a key file. Intended for one-off setup:
//
//	go run ./cmd/admin -config config.yaml -keys wallets.csv
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/infra/storage/postgres"
	"github.com/vietddude/cycler/internal/ops"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	keyFile := flag.String("keys", "", "Key file to seed from (address,secret[,label] per line)")
	migrationsDir := flag.String("migrations", "migrations", "Path to goose migrations")
	flag.Parse()

	stylelog.InitDefault(
		&tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339,
		})

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}

	if *keyFile == "" {
		slog.Error("Missing -keys flag")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database, *migrationsDir)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewWalletRepo(db, ops.NewHMACSigner)

	seeded, err := seed(ctx, repo, *keyFile)
	if err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Wallets seeded", "count", seeded)
}

type saver interface {
	Save(ctx context.Context, address, secret, label string) error
}

func seed(ctx context.Context, repo saver, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	count := 0
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
			return count, fmt.Errorf("key file line %d: expected address,secret", lineNo)
		}
		address := strings.TrimSpace(parts[0])
		secret := strings.TrimSpace(parts[1])
		label := ""
		if len(parts) == 3 {
			label = strings.TrimSpace(parts[2])
		}

		if err := repo.Save(ctx, address, secret, label); err != nil {
			return count, fmt.Errorf("key file line %d: %w", lineNo, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read key file: %w", err)
	}
	return count, nil
}
