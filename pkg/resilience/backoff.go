package resilience

import (
	"context"
	"time"
)

// Backoff produces capped exponential delays between retry attempts.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps the delay growth.
	Max time.Duration
	// Factor multiplies the delay each attempt, at least 1.
	Factor float64
}

// DefaultBackoff suits background replication retries.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 2,
	}
}

// Delay returns the wait before retry number attempt, counted from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 2
	}

	delay := float64(base)
	for i := 0; i < attempt; i++ {
		delay *= factor
		if delay >= float64(max) {
			return max
		}
	}
	if delay >= float64(max) {
		return max
	}
	return time.Duration(delay)
}

// SleepWithContext waits out the delay unless the context ends first.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
