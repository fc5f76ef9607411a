package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/cycler/internal/core/domain"
	redisclient "github.com/vietddude/cycler/internal/infra/redis"
)

// RedisSink publishes cycle summaries to Redis so other services can read
// the runner's recent history without scraping logs.
type RedisSink struct {
	client *redisclient.Client
}

// NewRedisSink wraps a connected Redis client.
func NewRedisSink(client *redisclient.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Render(ctx context.Context, r *domain.CycleReport) error {
	payload, err := json.Marshal(Summarize(r))
	if err != nil {
		return fmt.Errorf("failed to marshal cycle summary: %w", err)
	}
	return s.client.PushReport(ctx, payload)
}
