package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Sleep records the requested
// duration and returns immediately.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration
}

// NewFake creates a Fake starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sleeps = append(f.Sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// Advance moves the fake time forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
