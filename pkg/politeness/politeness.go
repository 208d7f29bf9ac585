// Package politeness spaces out requests against a single site. Contact-page
// crawls hit a handful of paths on one host in quick succession; a small
// random delay before each request keeps that burst from looking like a
// naive scraper to basic rate limiters.
package politeness

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Delayer sleeps a random duration in [Min, Max) before each operation.
// It is safe for concurrent use by multiple goroutines.
type Delayer struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDelayer creates a Delayer. If max <= min the delay is fixed at min.
// A zero Delayer (min=max=0) never blocks.
func NewDelayer(min, max time.Duration) *Delayer {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Delayer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks for the randomized delay or until the context is canceled.
func (d *Delayer) Wait(ctx context.Context) error {
	delay := d.next()
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Delayer) next() time.Duration {
	if d.max <= d.min {
		return d.min
	}
	d.mu.Lock()
	n := d.rng.Int63n(int64(d.max - d.min))
	d.mu.Unlock()
	return d.min + time.Duration(n)
}
