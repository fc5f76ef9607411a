package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Runner.MaxRetries == 0 {
		cfg.Runner.MaxRetries = 3
	}
	if cfg.Runner.RetryBaseDelay == 0 {
		cfg.Runner.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Runner.OpDelay == (DelayRange{}) {
		cfg.Runner.OpDelay = DelayRange{Min: 5 * time.Second, Max: 15 * time.Second}
	}
	if cfg.Runner.WalletDelay == (DelayRange{}) {
		cfg.Runner.WalletDelay = DelayRange{Min: 10 * time.Second, Max: 30 * time.Second}
	}
	if cfg.Runner.CycleInterval == 0 {
		cfg.Runner.CycleInterval = 30 * time.Minute
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.max_retries must be >= 0, got %d", cfg.Runner.MaxRetries)
	}
	if cfg.Runner.RetryBaseDelay <= 0 {
		return fmt.Errorf("runner.retry_base_delay must be > 0, got %v", cfg.Runner.RetryBaseDelay)
	}
	if cfg.Runner.CycleInterval <= 0 {
		return fmt.Errorf("runner.cycle_interval must be > 0, got %v", cfg.Runner.CycleInterval)
	}
	for _, r := range []struct {
		name  string
		delay DelayRange
	}{
		{"runner.op_delay", cfg.Runner.OpDelay},
		{"runner.wallet_delay", cfg.Runner.WalletDelay},
	} {
		if r.delay.Min < 0 || r.delay.Max < r.delay.Min {
			return fmt.Errorf("%s: invalid range [%v, %v]", r.name, r.delay.Min, r.delay.Max)
		}
	}
	return nil
}
