package verify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive checks against the same upstream by a fixed
// interval. The first acquisition per key is immediate, so no delay trails
// the last check of a phase. Keys see independent limiters, preserving
// per-upstream serialization if callers ever overlap phases.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewPacer creates a pacer with the given inter-request interval. A zero or
// negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until the next check against key may proceed.
func (p *Pacer) Wait(ctx context.Context, key string) error {
	if p.interval <= 0 {
		return nil
	}
	return p.limiter(key).Wait(ctx)
}

func (p *Pacer) limiter(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[key] = l
	}
	return l
}
