// Package control drives the cycle loop: one full pass over all wallets,
// a cooldown, then the next pass, until the context is cancelled.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/cycler/internal/core/clock"
	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/exec/sequencer"
	"github.com/vietddude/cycler/internal/infra/proxy"
	"github.com/vietddude/cycler/internal/infra/transport"
	"github.com/vietddude/cycler/internal/metrics"
	"github.com/vietddude/cycler/internal/report"
)

// State names the runner's position in the cycle loop.
type State string

const (
	StateIdle         State = "idle"
	StateRunningCycle State = "running_cycle"
	StateCooldown     State = "cooldown"
)

// Dialer builds per-wallet connections. Implemented by transport.Dialer.
type Dialer interface {
	Dial(ctx context.Context, p domain.Proxy) (*transport.Conn, error)
}

// PlanBuilder assembles a wallet's operation plan over its connection.
// Implemented by ops.Builder.
type PlanBuilder interface {
	Build(wallet domain.Wallet, conn *transport.Conn) (domain.Plan, error)
}

// Status is the runner's externally visible state, served by the status
// endpoint.
type Status struct {
	State           State           `json:"state"`
	Wallets         int             `json:"wallets"`
	CyclesCompleted int             `json:"cycles_completed"`
	LastCycle       *report.Summary `json:"last_cycle,omitempty"`
}

// Runner iterates all wallets once per cycle and aggregates outcomes into
// a CycleReport. Strictly sequential: one wallet at a time, one operation
// at a time.
type Runner struct {
	cfg     config.RunnerConfig
	wallets []domain.Wallet
	pool    *proxy.Pool
	dialer  Dialer
	seq     *sequencer.Sequencer
	plans   PlanBuilder
	sink    report.Sink
	clk     clock.Clock

	mu     sync.Mutex
	state  State
	cycles int
	last   *report.Summary
}

// NewRunner wires a Runner. An empty wallet list is a fatal configuration
// error: there is nothing to cycle over.
func NewRunner(
	cfg config.RunnerConfig,
	wallets []domain.Wallet,
	pool *proxy.Pool,
	dialer Dialer,
	seq *sequencer.Sequencer,
	plans PlanBuilder,
	sink report.Sink,
	clk clock.Clock,
) (*Runner, error) {
	if len(wallets) == 0 {
		return nil, fmt.Errorf("runner needs at least one wallet")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if sink == nil {
		sink = report.LogSink{}
	}
	return &Runner{
		cfg:     cfg,
		wallets: wallets,
		pool:    pool,
		dialer:  dialer,
		seq:     seq,
		plans:   plans,
		sink:    sink,
		clk:     clk,
		state:   StateIdle,
	}, nil
}

// Run executes cycles until ctx is cancelled. The returned error is
// always the context's.
func (r *Runner) Run(ctx context.Context) error {
	for {
		r.setState(StateRunningCycle)
		rep := r.runCycle(ctx)

		// Interrupt means immediate clean exit: partial cycle state is
		// dropped, not flushed.
		if err := ctx.Err(); err != nil {
			r.setState(StateIdle)
			return err
		}

		r.finishCycle(ctx, rep)

		r.setState(StateCooldown)
		slog.Info("Cooling down until next cycle", "interval", r.cfg.CycleInterval)
		if err := r.clk.Sleep(ctx, r.cfg.CycleInterval); err != nil {
			r.setState(StateIdle)
			return err
		}
	}
}

// RunOnce executes a single cycle and returns its report. Used by tests
// and the one-shot CLI mode.
func (r *Runner) RunOnce(ctx context.Context) *domain.CycleReport {
	r.setState(StateRunningCycle)
	rep := r.runCycle(ctx)
	r.finishCycle(ctx, rep)
	r.setState(StateIdle)
	return rep
}

// Status reports the runner's current state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		State:           r.state,
		Wallets:         len(r.wallets),
		CyclesCompleted: r.cycles,
		LastCycle:       r.last,
	}
}

func (r *Runner) runCycle(ctx context.Context) *domain.CycleReport {
	rep := domain.NewCycleReport(r.clk.Now())
	slog.Info("Cycle started", "cycle", rep.ID, "wallets", len(r.wallets))

	for i, w := range r.wallets {
		if ctx.Err() != nil {
			break
		}

		outcome := r.processWallet(ctx, w)
		rep.Record(*outcome)

		if i < len(r.wallets)-1 {
			if err := r.clk.Sleep(ctx, r.cfg.WalletDelay.Sample()); err != nil {
				break
			}
		}
	}

	rep.Finalize(r.clk.Now())
	return rep
}

// processWallet runs one wallet's plan behind a selected proxy. Every
// failure mode ends here: connection errors, plan assembly errors, and
// panics out of operation callbacks all mark the wallet failed and let
// the cycle continue.
func (r *Runner) processWallet(ctx context.Context, w domain.Wallet) (outcome *domain.IdentityOutcome) {
	p := r.pool.Select()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Wallet processing panicked", "wallet", w.Address, "panic", rec)
			outcome = failedOutcome(w, p)
			r.pool.Feedback(p, false)
			metrics.IdentityFailuresTotal.Inc()
		}
	}()

	conn, err := r.dialer.Dial(ctx, p)
	if err != nil {
		slog.Error("Failed to build connection", "wallet", w.Address, "proxy", p, "error", err)
		r.pool.Feedback(p, false)
		metrics.IdentityFailuresTotal.Inc()
		return failedOutcome(w, p)
	}
	defer conn.Close()

	plan, err := r.plans.Build(w, conn)
	if err != nil {
		slog.Error("Failed to build plan", "wallet", w.Address, "error", err)
		r.pool.Feedback(p, false)
		metrics.IdentityFailuresTotal.Inc()
		return failedOutcome(w, p)
	}

	outcome, seqErr := r.seq.Run(ctx, w, p, plan)
	r.pool.Feedback(p, identitySucceeded(outcome, seqErr))
	return outcome
}

// identitySucceeded is the wallet-level signal fed back to the proxy pool.
// Declined operations do not count against the proxy: they are business
// refusals, not network failures. Terminal operation errors do.
func identitySucceeded(o *domain.IdentityOutcome, seqErr error) bool {
	if seqErr != nil || o.Failed {
		return false
	}
	for _, res := range o.Results {
		if res.Err != "" {
			return false
		}
	}
	return true
}

func failedOutcome(w domain.Wallet, p domain.Proxy) *domain.IdentityOutcome {
	o := domain.NewIdentityOutcome(w.Address, p)
	o.Failed = true
	return o
}

func (r *Runner) finishCycle(ctx context.Context, rep *domain.CycleReport) {
	if err := r.sink.Render(ctx, rep); err != nil {
		slog.Warn("Failed to render cycle report", "cycle", rep.ID, "error", err)
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())

	summary := report.Summarize(rep)
	r.mu.Lock()
	r.cycles++
	r.last = &summary
	r.mu.Unlock()
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}
