// Package proxy maintains a scored set of proxy endpoints and rotates
// wallets across the healthy ones.
package proxy

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/cycler/internal/core/domain"
	"github.com/vietddude/cycler/internal/metrics"
)

const (
	// initialScore seeds every record at neutral health.
	initialScore = 0.5
	// disableBelow is the score under which a record is taken out of rotation.
	disableBelow = 0.2
	// ewmaDecay is the weight kept from the previous score on each feedback.
	ewmaDecay = 0.8
	// starvationRatio triggers a full re-enable once this share of records
	// is disabled, so a bad streak cannot empty the pool permanently.
	starvationRatio = 0.8
	// selectTopN bounds the random pick to the healthiest few records,
	// spreading load without always hammering the single best proxy.
	selectTopN = 3
)

// Record tracks one proxy endpoint's rolling health.
type Record struct {
	Address  domain.Proxy
	Score    float64
	Disabled bool

	Successes  int
	Failures   int
	LastUsedAt time.Time
}

// Pool owns all proxy records. Records are never removed, only disabled
// and re-enabled. Safe for concurrent use: the status server reads stats
// while the runner mutates scores.
type Pool struct {
	mu      sync.Mutex
	records []*Record
}

// NewPool creates a pool from proxy URLs. An empty list is a valid pool;
// Select then always reports direct connection.
func NewPool(addresses []string) *Pool {
	p := &Pool{}
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		p.records = append(p.records, &Record{
			Address: domain.Proxy(addr),
			Score:   initialScore,
		})
	}
	return p
}

// Select picks a proxy for the next wallet: eligible records sorted by
// score descending, then a uniform random pick among the top few. Returns
// the zero Proxy when the pool is empty or nothing is eligible.
func (p *Pool) Select() domain.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetIfStarved()

	var eligible []*Record
	for _, r := range p.records {
		if !r.Disabled {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return ""
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Score > eligible[j].Score
	})

	topN := min(selectTopN, len(eligible))
	selected := eligible[rand.Intn(topN)]
	selected.LastUsedAt = time.Now()

	return selected.Address
}

// Feedback folds one wallet-level result into the proxy's score. A zero
// proxy means the wallet connected directly; that is a no-op, as is an
// address the pool does not know.
func (p *Pool) Feedback(addr domain.Proxy, success bool) {
	if addr.IsZero() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r := p.find(addr)
	if r == nil {
		return
	}

	if success {
		r.Successes++
		r.Score = r.Score*ewmaDecay + (1 - ewmaDecay)
		if r.Score > 1 {
			r.Score = 1
		}
	} else {
		r.Failures++
		r.Score = r.Score * ewmaDecay
		if r.Score < disableBelow {
			r.Disabled = true
		}
	}

	metrics.ProxyScore.WithLabelValues(string(addr)).Set(r.Score)
	metrics.ProxiesDisabled.Set(float64(p.disabledCount()))
}

// Size returns the number of records in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// Stats returns a snapshot of all records for the status endpoint.
func (p *Pool) Stats() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Record, len(p.records))
	for i, r := range p.records {
		out[i] = *r
	}
	return out
}

// resetIfStarved re-enables every record once too many are disabled.
// Scores are preserved so chronically bad proxies drop out again quickly.
// Caller must hold the lock.
func (p *Pool) resetIfStarved() {
	if len(p.records) == 0 {
		return
	}
	disabled := p.disabledCount()
	if float64(disabled)/float64(len(p.records)) >= starvationRatio {
		for _, r := range p.records {
			r.Disabled = false
		}
		metrics.ProxiesDisabled.Set(0)
	}
}

func (p *Pool) disabledCount() int {
	n := 0
	for _, r := range p.records {
		if r.Disabled {
			n++
		}
	}
	return n
}

func (p *Pool) find(addr domain.Proxy) *Record {
	for _, r := range p.records {
		if r.Address == addr {
			return r
		}
	}
	return nil
}
