package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests to content servers
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a token bucket limiter refilled continuously
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows burst requests at once and refills one token every interval
func NewTokenBucket(interval time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// NewPerMinute creates a limiter allowing requestsPerMinute on average.
// Zero or negative values disable limiting.
func NewPerMinute(requestsPerMinute, burst int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited()
	}
	return NewTokenBucket(time.Minute/time.Duration(requestsPerMinute), burst)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

type unlimited struct{}

// Unlimited returns a limiter that never blocks
func Unlimited() Limiter {
	return unlimited{}
}

func (unlimited) Allow() bool                    { return true }
func (unlimited) Wait(ctx context.Context) error { return ctx.Err() }
