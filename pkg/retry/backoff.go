package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy returns the delay before the given attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to BackoffStrategy
type BackoffFunc func(attempt int) time.Duration

// NextDelay calls f
func (f BackoffFunc) NextDelay(attempt int) time.Duration { return f(attempt) }

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at
// MaxDelay, with +/- JitterFactor of random spread.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff waits 1s, 2s, 4s ... up to 30s
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	factor := eb.Multiplier
	if factor < 1 {
		factor = 1
	}

	delay := float64(eb.BaseDelay)
	limit := float64(eb.MaxDelay)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if limit > 0 && delay >= limit {
			break
		}
	}
	if limit > 0 && delay > limit {
		delay = limit
	}

	if j := eb.JitterFactor; j > 0 {
		delay *= 1 + j*(2*rand.Float64()-1)
	}
	return time.Duration(max(delay, 0))
}

// ConstantBackoff waits the same Delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or until ctx is done, whichever comes first
func Wait(ctx context.Context, delay time.Duration) error {
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
