package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/cycler/internal/core/domain"
)

func buildReport() *domain.CycleReport {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := domain.NewCycleReport(start)

	ok := domain.NewIdentityOutcome("0xaaa", "http://p1:8080")
	ok.Record(domain.OperationResult{Name: "auth", Succeeded: true})
	ok.Record(domain.OperationResult{Name: "transfer", Succeeded: true})
	r.Record(*ok)

	bad := domain.NewIdentityOutcome("0xbbb", "")
	bad.Failed = true
	r.Record(*bad)

	mixed := domain.NewIdentityOutcome("0xccc", "http://p2:8080")
	mixed.Record(domain.OperationResult{Name: "auth", Succeeded: true})
	mixed.Record(domain.OperationResult{Name: "transfer", Declined: true})
	r.Record(*mixed)

	r.Finalize(start.Add(10 * time.Minute))
	return r
}

func TestSummarize(t *testing.T) {
	s := Summarize(buildReport())

	if s.Wallets != 3 {
		t.Errorf("Wallets = %d, want 3", s.Wallets)
	}
	if s.FailedWallets != 1 {
		t.Errorf("FailedWallets = %d, want 1", s.FailedWallets)
	}
	if s.TotalOps != 4 {
		t.Errorf("TotalOps = %d, want 4", s.TotalOps)
	}
	if s.SuccessfulOps != 3 {
		t.Errorf("SuccessfulOps = %d, want 3", s.SuccessfulOps)
	}
	if got := s.Categories["auth"]; got.Total != 2 || got.Succeeded != 2 {
		t.Errorf("auth category = %+v, want 2/2", got)
	}
	if got := s.Categories["transfer"]; got.Total != 2 || got.Succeeded != 1 {
		t.Errorf("transfer category = %+v, want 1/2", got)
	}
	if len(s.Outcomes) != 3 {
		t.Fatalf("Outcomes = %d, want 3", len(s.Outcomes))
	}
	if !s.Outcomes[1].Failed || s.Outcomes[1].Ops != 0 {
		t.Errorf("failed wallet row wrong: %+v", s.Outcomes[1])
	}
}

type failSink struct{ calls int }

func (f *failSink) Render(ctx context.Context, r *domain.CycleReport) error {
	f.calls++
	return errors.New("sink down")
}

type okSink struct{ calls int }

func (o *okSink) Render(ctx context.Context, r *domain.CycleReport) error {
	o.calls++
	return nil
}

func TestMultiSink_FailureDoesNotBlock(t *testing.T) {
	bad := &failSink{}
	good := &okSink{}
	m := MultiSink{bad, good}

	if err := m.Render(context.Background(), buildReport()); err != nil {
		t.Fatalf("MultiSink.Render returned error: %v", err)
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Errorf("sink calls = %d/%d, want 1/1", bad.calls, good.calls)
	}
}

func TestLogSink(t *testing.T) {
	if err := (LogSink{}).Render(context.Background(), buildReport()); err != nil {
		t.Errorf("LogSink.Render returned error: %v", err)
	}
}
