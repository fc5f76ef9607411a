package config

import (
	"math/rand"
	"time"

	redisclient "github.com/vietddude/cycler/internal/infra/redis"
	"github.com/vietddude/cycler/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Wallets  WalletsConfig      `yaml:"wallets"`
	Proxies  ProxiesConfig      `yaml:"proxies"`
	Runner   RunnerConfig       `yaml:"runner"`
	Plan     PlanConfig         `yaml:"plan"`
}

// ServerConfig holds status/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WalletsConfig selects the credential source. The database takes
// precedence when configured; otherwise keys are read from a file.
type WalletsConfig struct {
	KeyFile string `yaml:"key_file"`
}

// ProxiesConfig holds the proxy pool inputs. An empty pool is valid and
// means every wallet connects directly.
type ProxiesConfig struct {
	List []string `yaml:"list"`
	File string   `yaml:"file"`
}

// RunnerConfig holds the cycle runner and retry settings.
type RunnerConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	OpDelay        DelayRange    `yaml:"op_delay"`
	WalletDelay    DelayRange    `yaml:"wallet_delay"`
	CycleInterval  time.Duration `yaml:"cycle_interval"`
}

// PlanConfig holds settings for the reference operation plan.
type PlanConfig struct {
	Operations []string `yaml:"operations"`
	RPCURL     string   `yaml:"rpc_url"`
	GRPCURL    string   `yaml:"grpc_url"`
}

// DelayRange is a [min, max] pacing interval.
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Sample returns a uniformly random duration in [Min, Max].
func (d DelayRange) Sample() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}
