package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/exec/retry"
	"github.com/vietddude/cycler/internal/exec/sequencer"
	"github.com/vietddude/cycler/internal/health"
	"github.com/vietddude/cycler/internal/infra/proxy"
	redisclient "github.com/vietddude/cycler/internal/infra/redis"
	"github.com/vietddude/cycler/internal/infra/storage"
	"github.com/vietddude/cycler/internal/infra/storage/file"
	"github.com/vietddude/cycler/internal/infra/storage/postgres"
	"github.com/vietddude/cycler/internal/infra/transport"
	"github.com/vietddude/cycler/internal/metrics"
	"github.com/vietddude/cycler/internal/ops"
	"github.com/vietddude/cycler/internal/report"
)

// Config holds the application configuration.
type Config struct {
	Port          int
	Runner        config.RunnerConfig
	Plan          config.PlanConfig
	Wallets       config.WalletsConfig
	Proxies       []string
	Database      postgres.Config
	Redis         redisclient.Config
	MigrationsDir string
}

// App is the main application struct that manages the runner lifecycle.
type App struct {
	cfg          Config
	runner       *Runner
	pool         *proxy.Pool
	statusServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	balanceConn  *transport.Conn
	log          *slog.Logger
}

// NewApp creates a new App instance with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	ctx := context.Background()

	// 1. Credential source
	var walletRepo storage.WalletRepository
	var db *postgres.DB

	switch {
	case cfg.Database.URL != "":
		var err error
		db, err = postgres.NewDB(ctx, cfg.Database, cfg.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		walletRepo = postgres.NewWalletRepo(db, ops.NewHMACSigner)
		slog.Info("Using PostgreSQL wallet source")

	case cfg.Wallets.KeyFile != "":
		var err error
		walletRepo, err = file.NewWalletRepo(cfg.Wallets.KeyFile, ops.NewHMACSigner)
		if err != nil {
			return nil, fmt.Errorf("failed to load key file: %w", err)
		}
		slog.Info("Using key file wallet source", "path", cfg.Wallets.KeyFile)

	default:
		return nil, fmt.Errorf("no wallet source configured: set database.url or wallets.key_file")
	}

	wallets, err := walletRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, storage.ErrNoWallets
	}
	metrics.Wallets.Set(float64(len(wallets)))
	slog.Info("Loaded wallets", "count", len(wallets))

	// 2. Proxy pool
	pool := proxy.NewPool(cfg.Proxies)
	if pool.Size() == 0 {
		slog.Info("No proxies configured, all wallets connect directly")
	} else {
		slog.Info("Proxy pool ready", "size", pool.Size())
	}

	// 3. Transport, plan builder, sequencer
	dialer := transport.NewDialer(cfg.Plan.GRPCURL, 30*time.Second)

	var balances sequencer.BalanceFetcher
	var balanceConn *transport.Conn
	if cfg.Plan.RPCURL != "" {
		balanceConn, err = dialer.Dial(ctx, domain.Proxy(""))
		if err != nil {
			slog.Warn("Failed to build balance connection, snapshots disabled", "error", err)
		} else {
			balances = ops.NewBalances(balanceConn, cfg.Plan.RPCURL)
		}
	}

	exec := retry.NewExecutor(retry.Config{
		MaxRetries: cfg.Runner.MaxRetries,
		BaseDelay:  cfg.Runner.RetryBaseDelay,
	}, nil)
	seq := sequencer.New(exec, cfg.Runner.OpDelay, balances, nil)
	plans := ops.NewBuilder(cfg.Plan)

	// 4. Report sinks
	sinks := report.MultiSink{report.LogSink{}}
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, report publishing disabled", "error", err)
		} else {
			sinks = append(sinks, report.NewRedisSink(redisClient))
			slog.Info("Publishing cycle reports to Redis")
		}
	}

	// 5. Runner
	runner, err := NewRunner(cfg.Runner, wallets, pool, dialer, seq, plans, sinks, nil)
	if err != nil {
		return nil, err
	}

	// 6. Status server
	checks := map[string]health.CheckFunc{}
	if db != nil {
		checks["db"] = db.Health
	}
	statusServer := health.NewServer(cfg.Port,
		func() any { return runner.Status() },
		func() any { return pool.Stats() },
		checks,
	)

	return &App{
		cfg:          cfg,
		runner:       runner,
		pool:         pool,
		statusServer: statusServer,
		db:           db,
		redisClient:  redisClient,
		balanceConn:  balanceConn,
		log:          slog.Default(),
	}, nil
}

// Start starts the status server and the cycle loop.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.statusServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Status server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	go func() {
		err := a.runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("Runner stopped", "error", err)
		}
	}()

	return nil
}

// RunOnce executes a single cycle synchronously. Used by the -once flag.
func (a *App) RunOnce(ctx context.Context) {
	a.runner.RunOnce(ctx)
}

// Stop stops the app.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping cycler...")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.balanceConn != nil {
		_ = a.balanceConn.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}

	return a.statusServer.Stop(ctx)
}
