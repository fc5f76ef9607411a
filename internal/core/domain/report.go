package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdentityOutcome accumulates operation results for one wallet during one
// cycle. Created fresh per wallet per cycle, immutable once recorded into
// the report.
type IdentityOutcome struct {
	Address string
	Proxy   Proxy
	Failed  bool // identity-level failure (connection setup, sequencing panic)
	Results []OperationResult
}

// NewIdentityOutcome creates an empty outcome for a wallet.
func NewIdentityOutcome(address string, proxy Proxy) *IdentityOutcome {
	return &IdentityOutcome{Address: address, Proxy: proxy}
}

// Record appends one operation result.
func (o *IdentityOutcome) Record(res OperationResult) {
	o.Results = append(o.Results, res)
}

// OpsTotal returns the number of operations attempted.
func (o *IdentityOutcome) OpsTotal() int {
	return len(o.Results)
}

// OpsSucceeded returns the number of operations that completed.
func (o *IdentityOutcome) OpsSucceeded() int {
	n := 0
	for _, r := range o.Results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// Category reports whether any operation in the named category succeeded.
func (o *IdentityOutcome) Category(name string) bool {
	for _, r := range o.Results {
		if r.Name == name && r.Succeeded {
			return true
		}
	}
	return false
}

// CategoryTotal aggregates one operation category across a cycle.
type CategoryTotal struct {
	Total     int
	Succeeded int
}

// CycleReport is the aggregate of one full pass over all wallets.
// Created at cycle start, finalized and rendered at cycle end, then
// discarded.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []IdentityOutcome

	TotalOps      int
	SuccessfulOps int
	Categories    map[string]CategoryTotal
}

// NewCycleReport creates an empty report for a starting cycle.
func NewCycleReport(start time.Time) *CycleReport {
	return &CycleReport{
		ID:         uuid.NewString(),
		StartedAt:  start,
		Categories: make(map[string]CategoryTotal),
	}
}

// Record appends one wallet's outcome and folds it into the aggregates.
// Every wallet contributes exactly one entry per cycle, including wallets
// that failed before any operation ran.
func (r *CycleReport) Record(o IdentityOutcome) {
	r.Outcomes = append(r.Outcomes, o)

	for _, res := range o.Results {
		r.TotalOps++
		ct := r.Categories[res.Name]
		ct.Total++
		if res.Succeeded {
			r.SuccessfulOps++
			ct.Succeeded++
		}
		r.Categories[res.Name] = ct
	}
}

// FailedIdentities counts wallets that failed at the identity level.
func (r *CycleReport) FailedIdentities() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed {
			n++
		}
	}
	return n
}

// Finalize stamps the end time.
func (r *CycleReport) Finalize(end time.Time) {
	r.FinishedAt = end
}
