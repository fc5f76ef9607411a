// Package redis publishes cycle summaries for external consumers.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	reportsKey = "cycler:reports"
	statusKey  = "cycler:status"

	// reportHistory bounds the rolling window of kept summaries.
	reportHistory = 50
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Client wraps Redis operations for the report pipeline.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PushReport appends a serialized cycle summary to the rolling report list
// and updates the latest-status key.
func (c *Client) PushReport(ctx context.Context, payload []byte) error {
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, reportsKey, payload)
	pipe.LTrim(ctx, reportsKey, 0, reportHistory-1)
	pipe.Set(ctx, statusKey, payload, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent cycle summary, or nil when none
// has been published yet.
func (c *Client) LatestReport(ctx context.Context) ([]byte, error) {
	val, err := c.rdb.Get(ctx, statusKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	return val, nil
}

// Reports returns up to n recent cycle summaries, newest first.
func (c *Client) Reports(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 || n > reportHistory {
		n = reportHistory
	}
	out, err := c.rdb.LRange(ctx, reportsKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return out, nil
}
