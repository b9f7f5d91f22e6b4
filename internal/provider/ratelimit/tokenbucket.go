package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// TokenBucket allows perMinute calls on average with bursts up to burst.
// Use it instead of MinInterval when an upstream publishes a per-minute quota.
type TokenBucket struct {
	lim *rate.Limiter
}

// NewTokenBucket builds a bucket that starts full. perMinute <= 0 disables limiting.
func NewTokenBucket(perMinute, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	return &TokenBucket{lim: rate.NewLimiter(limit, burst)}
}

func (t *TokenBucket) Acquire(ctx context.Context) error {
	return t.lim.Wait(ctx)
}
