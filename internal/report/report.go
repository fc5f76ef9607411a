// Package report renders finalized cycle reports to configured sinks.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/cycler/internal/core/domain"
)

// Sink accepts a finalized cycle report. Rendering failures are non-fatal
// to the runner.
type Sink interface {
	Render(ctx context.Context, r *domain.CycleReport) error
}

// Summary is the serializable shape of a cycle report.
type Summary struct {
	CycleID       string                 `json:"cycle_id"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	Wallets       int                    `json:"wallets"`
	FailedWallets int                    `json:"failed_wallets"`
	TotalOps      int                    `json:"total_ops"`
	SuccessfulOps int                    `json:"successful_ops"`
	Categories    map[string]CategoryRow `json:"categories"`
	Outcomes      []OutcomeRow           `json:"outcomes"`
}

// CategoryRow aggregates one operation category.
type CategoryRow struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
}

// OutcomeRow is one wallet's line in the summary.
type OutcomeRow struct {
	Address   string `json:"address"`
	Proxy     string `json:"proxy,omitempty"`
	Failed    bool   `json:"failed"`
	Ops       int    `json:"ops"`
	Succeeded int    `json:"succeeded"`
}

// Summarize flattens a report for serialization.
func Summarize(r *domain.CycleReport) Summary {
	s := Summary{
		CycleID:       r.ID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Wallets:       len(r.Outcomes),
		FailedWallets: r.FailedIdentities(),
		TotalOps:      r.TotalOps,
		SuccessfulOps: r.SuccessfulOps,
		Categories:    make(map[string]CategoryRow, len(r.Categories)),
	}
	for name, ct := range r.Categories {
		s.Categories[name] = CategoryRow{Total: ct.Total, Succeeded: ct.Succeeded}
	}
	for _, o := range r.Outcomes {
		s.Outcomes = append(s.Outcomes, OutcomeRow{
			Address:   o.Address,
			Proxy:     string(o.Proxy),
			Failed:    o.Failed,
			Ops:       o.OpsTotal(),
			Succeeded: o.OpsSucceeded(),
		})
	}
	return s
}

// LogSink renders reports through slog.
type LogSink struct{}

func (LogSink) Render(ctx context.Context, r *domain.CycleReport) error {
	slog.Info("Cycle complete",
		"cycle", r.ID,
		"wallets", len(r.Outcomes),
		"failed_wallets", r.FailedIdentities(),
		"ops_total", r.TotalOps,
		"ops_successful", r.SuccessfulOps,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	)
	for name, ct := range r.Categories {
		slog.Info("Category totals",
			"cycle", r.ID, "category", name,
			"total", ct.Total, "succeeded", ct.Succeeded)
	}
	for _, o := range r.Outcomes {
		slog.Debug("Wallet outcome",
			"cycle", r.ID,
			"wallet", o.Address,
			"proxy", o.Proxy,
			"failed", o.Failed,
			"ops", o.OpsTotal(),
			"succeeded", o.OpsSucceeded(),
		)
	}
	return nil
}

// MultiSink fans a report out to several sinks. A failing sink is logged
// and does not block the others.
type MultiSink []Sink

func (m MultiSink) Render(ctx context.Context, r *domain.CycleReport) error {
	for _, s := range m {
		if err := s.Render(ctx, r); err != nil {
			slog.Warn("Report sink failed", "cycle", r.ID, "error", err)
		}
	}
	return nil
}
