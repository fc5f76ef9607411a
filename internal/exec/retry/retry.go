// Package retry wraps a single fallible operation with bounded retries
// and exponential backoff.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/cycler/internal/core/clock"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt,
	// so an operation runs at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay scales the backoff: failed attempt k sleeps 2^k * BaseDelay.
	BaseDelay time.Duration
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
}

// Executor runs operations under the retry policy.
type Executor struct {
	cfg Config
	clk clock.Clock
}

// NewExecutor creates an Executor. A nil clock means the wall clock.
func NewExecutor(cfg Config, clk clock.Clock) *Executor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Executor{cfg: cfg, clk: clk}
}

// Execute runs op until it returns an Outcome or the attempt budget is
// spent. Only errors trigger retries: a Declined outcome is a deterministic
// business refusal and comes back immediately. Intermediate failures are
// logged at warn; the terminal error is returned to the caller.
//
// Backoff after failed attempt k (1-indexed) is 2^k * BaseDelay, with no
// jitter. The deterministic schedule is intentional.
func (e *Executor) Execute(
	ctx context.Context,
	name string,
	op domain.OperationFunc,
) (domain.Outcome, error) {
	attempts := e.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := e.backoff(attempt)
		slog.Warn("Operation failed, retrying",
			"op", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)
		metrics.RetryAttemptsTotal.WithLabelValues(name).Inc()

		if serr := e.clk.Sleep(ctx, delay); serr != nil {
			return domain.Outcome{}, serr
		}
	}

	return domain.Outcome{}, fmt.Errorf(
		"operation %s failed after %d attempts: %w", name, attempts, lastErr)
}

func (e *Executor) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * e.cfg.BaseDelay
}
