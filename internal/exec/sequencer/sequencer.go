// Package sequencer executes a wallet's operation plan in order,
// tolerating per-operation failure.
package sequencer

import (
	"context"
	"log/slog"

	"github.com/vietddude/cycler/internal/core/clock"
	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/exec/retry"
	"github.com/vietddude/cycler/internal/metrics"
)

// BalanceFetcher reports a wallet's current balance. It is queried around
// a plan purely for observability; failures are swallowed and logged.
type BalanceFetcher interface {
	Balance(ctx context.Context, address string) (string, error)
}

// Sequencer runs plans. It owns no state across calls; everything lives
// in the inputs and the returned outcome.
type Sequencer struct {
	exec     *retry.Executor
	clk      clock.Clock
	opDelay  config.DelayRange
	balances BalanceFetcher // optional
}

// New creates a Sequencer. balances may be nil; a nil clock means the
// wall clock.
func New(
	exec *retry.Executor,
	opDelay config.DelayRange,
	balances BalanceFetcher,
	clk clock.Clock,
) *Sequencer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Sequencer{exec: exec, clk: clk, opDelay: opDelay, balances: balances}
}

// Run executes the plan for one wallet. Operations run in order with a
// randomized pacing delay between them. An operation that exhausts its
// retries is recorded as failed and the plan continues: one failing
// operation must not block later independent ones.
//
// The returned error is non-nil only when the context was cancelled
// mid-plan; the partial outcome is still returned.
func (s *Sequencer) Run(
	ctx context.Context,
	wallet domain.Wallet,
	p domain.Proxy,
	plan domain.Plan,
) (*domain.IdentityOutcome, error) {
	outcome := domain.NewIdentityOutcome(wallet.Address, p)

	s.logBalance(ctx, wallet.Address, "before")

	for i, op := range plan {
		out, err := s.exec.Execute(ctx, op.Name, op.Run)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			slog.Error("Operation failed permanently",
				"wallet", wallet.Address, "op", op.Name, "error", err)
			outcome.Record(domain.OperationResult{Name: op.Name, Err: err.Error()})
			metrics.OperationsTotal.WithLabelValues(op.Name, "failed").Inc()

		case out.Status == domain.OutcomeDeclined:
			slog.Info("Operation declined",
				"wallet", wallet.Address, "op", op.Name, "reason", out.Reason)
			outcome.Record(domain.OperationResult{Name: op.Name, Declined: true})
			metrics.OperationsTotal.WithLabelValues(op.Name, "declined").Inc()

		default:
			slog.Info("Operation completed", "wallet", wallet.Address, "op", op.Name)
			outcome.Record(domain.OperationResult{Name: op.Name, Succeeded: true})
			metrics.OperationsTotal.WithLabelValues(op.Name, "success").Inc()
		}

		if i < len(plan)-1 {
			if err := s.clk.Sleep(ctx, s.opDelay.Sample()); err != nil {
				return outcome, err
			}
		}
	}

	s.logBalance(ctx, wallet.Address, "after")

	return outcome, nil
}

func (s *Sequencer) logBalance(ctx context.Context, address, when string) {
	if s.balances == nil {
		return
	}
	bal, err := s.balances.Balance(ctx, address)
	if err != nil {
		slog.Warn("Failed to fetch balance", "wallet", address, "when", when, "error", err)
		return
	}
	slog.Info("Balance snapshot", "wallet", address, "when", when, "balance", bal)
}
