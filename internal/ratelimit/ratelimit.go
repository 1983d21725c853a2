package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter spaces out page requests. Wait blocks until the next request
// may start, or returns ctx.Err() if the context ends first. Done marks the
// end of a request; the next delay is measured from it.
type RateLimiter interface {
	Wait(ctx context.Context) error
	Done()
}

type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

// NewSimpleRateLimiter waits a random delay in [minDelay, maxDelay) between
// actions. Equal bounds give a fixed delay.
func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// NewFixed is the politeness delay between category pages.
func NewFixed(delay time.Duration) *SimpleRateLimiter {
	return NewSimpleRateLimiter(delay, delay)
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		timer := time.NewTimer(delay - elapsed)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) Done() {
	r.mu.Lock()
	r.lastAction = time.Now()
	r.mu.Unlock()
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if r.minDelay == r.maxDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return r.minDelay + jitter
}

// Noop never waits. Used in tests and for zero-delay configurations.
type Noop struct{}

func (Noop) Wait(ctx context.Context) error {
	return ctx.Err()
}

func (Noop) Done() {}
