package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// SimpleRateLimiter keeps a jittered minimum gap between consecutive actions.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   true,
	}
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAction.IsZero() {
		elapsed := time.Since(r.lastAction)
		delay := r.calculateDelay()

		if elapsed < delay {
			timer := time.NewTimer(delay - elapsed)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	delta := r.maxDelay - r.minDelay
	if !r.jitter || delta <= 0 {
		return r.minDelay
	}

	return r.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

// Budget caps the combined request rate of every caller sharing it.
type Budget struct {
	limiter *rate.Limiter
}

// NewBudget allows rps requests per second with the given burst.
// A non-positive rps disables the budget.
func NewBudget(rps float64, burst int) *Budget {
	if rps <= 0 {
		return &Budget{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Budget{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (b *Budget) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
