package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrBreakerOpen = errors.New("breaker is open")

// OpenError reports a rejected call with a concrete retry delay.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	retryAfter := e.RetryAfter
	if retryAfter < 0 {
		retryAfter = 0
	}
	if e.Name == "" {
		return fmt.Sprintf("%v: retry in %s", ErrBreakerOpen, retryAfter)
	}
	return fmt.Sprintf("%v for %s: retry in %s", ErrBreakerOpen, e.Name, retryAfter)
}

func (e *OpenError) Is(target error) bool {
	return target == ErrBreakerOpen
}

// OpenRetryAfter extracts the retry delay from a breaker rejection.
func OpenRetryAfter(err error) (time.Duration, bool) {
	var openErr *OpenError
	if errors.As(err, &openErr) {
		return openErr.RetryAfter, true
	}
	return 0, false
}

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes one breaker.
type BreakerConfig struct {
	// Name labels the breaker in errors, usually the protected backend.
	Name string
	// FailureThreshold is the consecutive-failure count that trips open.
	FailureThreshold int
	// OpenFor is how long calls are rejected before a probe is allowed.
	OpenFor time.Duration
}

// Breaker shields a flaky dependency: consecutive failures trip it open,
// rejecting calls until a cooldown passes; then a single probe call
// decides between closing again and another open period.
type Breaker struct {
	mu sync.Mutex

	cfg BreakerConfig

	state     BreakerState
	failures  int
	openUntil time.Time
	probing   bool
}

// NewBreaker creates a closed breaker with defaults applied.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 15 * time.Second
	}

	return &Breaker{
		cfg:   cfg,
		state: BreakerClosed,
	}
}

// State returns the current state after cooldown bookkeeping.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshLocked(time.Now())
	return b.state
}

// Execute runs fn under the breaker. Rejections return an OpenError;
// caller-driven cancellation is not counted against the dependency.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}

	err := fn(ctx)

	if errors.Is(err, context.Canceled) {
		b.release()
		return err
	}
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// acquire admits or rejects a call based on the current state.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refreshLocked(now)

	switch b.state {
	case BreakerOpen:
		return b.openErrLocked(now)
	case BreakerHalfOpen:
		if b.probing {
			// One probe at a time decides the dependency's fate.
			return b.openErrLocked(now)
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// release undoes a probe reservation without recording an outcome.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// recordSuccess closes the breaker or clears the failure streak.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

// recordFailure extends the streak and trips open at the threshold. A
// failed probe reopens immediately.
func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.tripLocked()
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.tripLocked()
	}
}

// refreshLocked moves an expired open period to half-open.
func (b *Breaker) refreshLocked(now time.Time) {
	if b.state == BreakerOpen && !now.Before(b.openUntil) {
		b.state = BreakerHalfOpen
		b.probing = false
	}
}

// tripLocked opens the breaker for the configured cooldown.
func (b *Breaker) tripLocked() {
	b.state = BreakerOpen
	b.openUntil = time.Now().Add(b.cfg.OpenFor)
	b.failures = 0
	b.probing = false
}

// openErrLocked builds the rejection error with the remaining cooldown.
func (b *Breaker) openErrLocked(now time.Time) error {
	remaining := b.openUntil.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return &OpenError{
		Name:       b.cfg.Name,
		RetryAfter: remaining,
	}
}
