package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the baseline spacing between provider calls.
	DefaultMinInterval = time.Second

	// penaltyPerError is added to the wait for each recent rate limit error.
	penaltyPerError = 500 * time.Millisecond

	// maxPenalty caps the adaptive extra delay.
	maxPenalty = 5 * time.Second

	// errorWindow is how long a reported rate limit error keeps contributing
	// to the adaptive penalty.
	errorWindow = time.Minute
)

// Limiter enforces a minimum interval between successive Acquire calls across
// all goroutines, with an adaptive penalty that grows while the upstream
// provider is returning rate limit errors.
type Limiter struct {
	limiter *rate.Limiter

	mu     sync.Mutex
	errors []time.Time
}

// Options configure a Limiter.
type Options struct {
	// MinInterval is the baseline spacing between calls.
	MinInterval time.Duration
}

// New creates a Limiter with the given options.
func New(optFns ...func(o *Options)) *Limiter {
	opts := Options{
		MinInterval: DefaultMinInterval,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
	}
}

// Acquire blocks until the caller may proceed. It first waits for a token
// from the base interval limiter, then sleeps out any adaptive penalty
// accumulated from recent rate limit errors. Returns the context error if
// ctx is canceled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	if penalty := l.Penalty(); penalty > 0 {
		timer := time.NewTimer(penalty)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

// RecordError notes that the upstream provider rejected a call with a rate
// limit error. Each recorded error increases the penalty applied to
// subsequent Acquire calls until it ages out of the window.
func (l *Limiter) RecordError() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.errors = append(l.errors, now)
	l.trimLocked(now)
}

// Penalty returns the current adaptive delay derived from recent errors.
func (l *Limiter) Penalty() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trimLocked(time.Now())

	penalty := time.Duration(len(l.errors)) * penaltyPerError
	if penalty > maxPenalty {
		penalty = maxPenalty
	}
	return penalty
}

// RecentErrors returns how many rate limit errors are still inside the window.
func (l *Limiter) RecentErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trimLocked(time.Now())
	return len(l.errors)
}

// trimLocked drops errors that aged out of the window. Callers must hold mu.
func (l *Limiter) trimLocked(now time.Time) {
	cutoff := now.Add(-errorWindow)
	i := 0
	for i < len(l.errors) && l.errors[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.errors = append(l.errors[:0], l.errors[i:]...)
	}
}
