package httpx

import (
	"context"
	"time"
)

// sleepFunc is the wait used between retry attempts (injectable for tests).
var sleepFunc = time.Sleep

// RetryConfig bounds one retried operation.
type RetryConfig struct {
	MaxRetries int           // total attempts, not extra attempts
	RetryDelay time.Duration // base backoff, doubled after each failure
	Timeout    time.Duration // per-attempt deadline
}

// Do invokes op up to MaxRetries times. Each attempt runs under its own
// deadline so a hung request is aborted without ending the run. After a
// failed attempt k it waits RetryDelay × 2^(k-1) before the next one. The
// final attempt's error is returned unchanged so callers can still inspect
// its concrete type.
func Do[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		actx := ctx
		cancel := context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}

		v, err := op(actx)
		cancel()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		sleepFunc(cfg.RetryDelay * (1 << (attempt - 1)))
	}

	return zero, lastErr
}
