package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/cycler/internal/control"
	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/infra/proxy"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	migrationsDir := flag.String("migrations", "migrations", "Path to goose migrations")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found")
	}

	// Load Configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to default logger for config load errors
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	slog.Info("Logger initialized", "level", slogLevel.String())

	// Resolve the proxy list (inline list plus optional file)
	proxies := cfg.Proxies.List
	if cfg.Proxies.File != "" {
		fromFile, err := proxy.LoadFile(cfg.Proxies.File)
		if err != nil {
			slog.Error("Failed to load proxy file", "error", err)
			os.Exit(1)
		}
		proxies = append(proxies, fromFile...)
	}

	controlCfg := control.Config{
		Port:          cfg.Server.Port,
		Runner:        cfg.Runner,
		Plan:          cfg.Plan,
		Wallets:       cfg.Wallets,
		Proxies:       proxies,
		Database:      cfg.Database,
		Redis:         cfg.Redis,
		MigrationsDir: *migrationsDir,
	}

	app, err := control.NewApp(controlCfg)
	if err != nil {
		slog.Error("Failed to initialize cycler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		app.RunOnce(ctx)
		if err := app.Stop(ctx); err != nil {
			slog.Error("Error during shutdown", "error", err)
			os.Exit(1)
		}
		return
	}

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start cycler", "error", err)
		os.Exit(1)
	}

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)
	cancel()

	// Graceful Shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Cycler stopped gracefully")
}
