package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter to its burst size
	Reset()
}

// TokenBucket is a token bucket limiter refilled continuously
type TokenBucket struct {
	limiter *rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewTokenBucket allows requestsPerMinute on average with bursts up to burst
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds())
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
	}
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

func (tb *TokenBucket) Reset() {
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// Unlimited never throttles
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (Unlimited) Reset() {}

// New returns a TokenBucket, or Unlimited when requestsPerMinute is zero
func New(requestsPerMinute, burst int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(requestsPerMinute, burst)
}
