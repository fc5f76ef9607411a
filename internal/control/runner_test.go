package control

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vietddude/cycler/internal/core/clock"
	"github.com/vietddude/cycler/internal/core/config"
	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/exec/retry"
	"github.com/vietddude/cycler/internal/exec/sequencer"
	"github.com/vietddude/cycler/internal/infra/proxy"
	"github.com/vietddude/cycler/internal/infra/transport"
)

type fakeDialer struct {
	failFor map[string]bool // proxy address -> fail
	failAll bool
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, p domain.Proxy) (*transport.Conn, error) {
	d.dials++
	if d.failAll || d.failFor[string(p)] {
		return nil, errors.New("dial refused")
	}
	return &transport.Conn{Proxy: p, HTTP: &http.Client{}}, nil
}

// fakePlans returns the same plan shape for every wallet, with behavior
// keyed by wallet address.
type fakePlans struct {
	ops     []string
	failFor map[string]bool // wallet address -> ops error
	panics  map[string]bool // wallet address -> plan build panics
}

func (f *fakePlans) Build(w domain.Wallet, conn *transport.Conn) (domain.Plan, error) {
	if f.panics[w.Address] {
		panic("broken plan for " + w.Address)
	}
	var plan domain.Plan
	for _, name := range f.ops {
		plan = append(plan, domain.Operation{Name: name, Run: func(ctx context.Context) (domain.Outcome, error) {
			if f.failFor[w.Address] {
				return domain.Outcome{}, errors.New("remote down")
			}
			return domain.Done(), nil
		}})
	}
	return plan, nil
}

type captureSink struct {
	reports []*domain.CycleReport
}

func (s *captureSink) Render(ctx context.Context, r *domain.CycleReport) error {
	s.reports = append(s.reports, r)
	return nil
}

func wallets(addrs ...string) []domain.Wallet {
	out := make([]domain.Wallet, len(addrs))
	for i, a := range addrs {
		out[i] = domain.Wallet{ID: uint64(i + 1), Address: a}
	}
	return out
}

func newTestRunner(
	t *testing.T,
	ws []domain.Wallet,
	pool *proxy.Pool,
	dialer Dialer,
	plans PlanBuilder,
	sink *captureSink,
) (*Runner, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Now())
	exec := retry.NewExecutor(retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond}, clk)
	seq := sequencer.New(exec, config.DelayRange{Min: time.Second, Max: time.Second}, nil, clk)

	cfg := config.RunnerConfig{
		WalletDelay:   config.DelayRange{Min: time.Second, Max: time.Second},
		CycleInterval: time.Minute,
	}
	r, err := NewRunner(cfg, ws, pool, dialer, seq, plans, sink, clk)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r, clk
}

func TestNewRunner_NoWallets(t *testing.T) {
	clk := clock.NewFake(time.Now())
	_, err := NewRunner(config.RunnerConfig{}, nil, proxy.NewPool(nil), &fakeDialer{}, nil, nil, nil, clk)
	if err == nil {
		t.Fatal("expected error for empty wallet list")
	}
}

func TestRunOnce_AllSucceed(t *testing.T) {
	sink := &captureSink{}
	r, _ := newTestRunner(t,
		wallets("0xaaa", "0xbbb"),
		proxy.NewPool(nil), // zero proxies: direct connection
		&fakeDialer{},
		&fakePlans{ops: []string{"auth", "checkin", "transfer"}},
		sink,
	)

	rep := r.RunOnce(context.Background())

	if len(rep.Outcomes) != 2 {
		t.Fatalf("report has %d outcomes, want 2", len(rep.Outcomes))
	}
	if rep.TotalOps != 6 || rep.SuccessfulOps != 6 {
		t.Errorf("ops = %d/%d, want 6/6", rep.SuccessfulOps, rep.TotalOps)
	}
	for _, o := range rep.Outcomes {
		if o.Failed || o.OpsSucceeded() != 3 {
			t.Errorf("outcome %s = %+v, want 3/3", o.Address, o)
		}
	}
	if len(sink.reports) != 1 {
		t.Errorf("sink rendered %d reports, want 1", len(sink.reports))
	}
	if st := r.Status(); st.State != StateIdle || st.CyclesCompleted != 1 || st.LastCycle == nil {
		t.Errorf("status after RunOnce = %+v", st)
	}
}

func TestRunOnce_DialFailureDoesNotAbortCycle(t *testing.T) {
	// All wallets share one proxy; the dialer rejects it only for the
	// second wallet by failing every dial attempt against that address
	// once primed.
	var calls int
	dialer := &stepDialer{failOnCall: 2, calls: &calls}

	sink := &captureSink{}
	r, _ := newTestRunner(t,
		wallets("0xaaa", "0xbbb", "0xccc"),
		proxy.NewPool(nil),
		dialer,
		&fakePlans{ops: []string{"auth"}},
		sink,
	)

	rep := r.RunOnce(context.Background())

	if len(rep.Outcomes) != 3 {
		t.Fatalf("report has %d outcomes, want 3", len(rep.Outcomes))
	}
	if !rep.Outcomes[1].Failed {
		t.Error("wallet 2 not marked failed")
	}
	if rep.Outcomes[0].Failed || rep.Outcomes[2].Failed {
		t.Error("healthy wallets marked failed")
	}
	if rep.FailedIdentities() != 1 {
		t.Errorf("FailedIdentities = %d, want 1", rep.FailedIdentities())
	}
}

// stepDialer fails exactly one dial by ordinal.
type stepDialer struct {
	failOnCall int
	calls      *int
}

func (d *stepDialer) Dial(ctx context.Context, p domain.Proxy) (*transport.Conn, error) {
	*d.calls++
	if *d.calls == d.failOnCall {
		return nil, errors.New("connect timeout")
	}
	return &transport.Conn{Proxy: p, HTTP: &http.Client{}}, nil
}

func TestRunOnce_PanicIsolatedToWallet(t *testing.T) {
	sink := &captureSink{}
	r, _ := newTestRunner(t,
		wallets("0xaaa", "0xbbb"),
		proxy.NewPool(nil),
		&fakeDialer{},
		&fakePlans{ops: []string{"auth"}, panics: map[string]bool{"0xaaa": true}},
		sink,
	)

	rep := r.RunOnce(context.Background())

	if len(rep.Outcomes) != 2 {
		t.Fatalf("report has %d outcomes, want 2", len(rep.Outcomes))
	}
	if !rep.Outcomes[0].Failed {
		t.Error("panicking wallet not marked failed")
	}
	if rep.Outcomes[1].Failed {
		t.Error("second wallet affected by first wallet's panic")
	}
}

func TestRunOnce_ProxyFeedback(t *testing.T) {
	pool := proxy.NewPool([]string{"http://p1:8080"})

	sink := &captureSink{}
	r, _ := newTestRunner(t,
		wallets("0xaaa"),
		pool,
		&fakeDialer{failAll: true},
		&fakePlans{ops: []string{"auth"}},
		sink,
	)
	r.RunOnce(context.Background())

	if s := pool.Stats()[0].Score; s >= 0.5 {
		t.Errorf("proxy score %f did not drop after dial failure", s)
	}

	// And a healthy run pushes it back up.
	r2, _ := newTestRunner(t, wallets("0xaaa"), pool, &fakeDialer{}, &fakePlans{ops: []string{"auth"}}, sink)
	r2.RunOnce(context.Background())

	if s := pool.Stats()[0].Score; s <= 0.4 {
		t.Errorf("proxy score %f did not recover after success", s)
	}
}

func TestRun_CooldownAndCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &captureSink{}
	r, clk := newTestRunner(t,
		wallets("0xaaa"),
		proxy.NewPool(nil),
		&fakeDialer{},
		&fakePlans{ops: []string{"auth"}},
		sink,
	)

	// Cancel during the first cooldown so Run sees exactly one cycle.
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		if st := r.Status(); st.CyclesCompleted >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("runner never completed a cycle")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if st := r.Status(); st.State != StateIdle {
		t.Errorf("state after cancel = %s, want idle", st.State)
	}
	_ = clk
}
