// Package retry re-runs failing upstream calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"stocksentiment/internal/stock"
)

// DefaultMaxDelay caps a single backoff wait.
const DefaultMaxDelay = 60 * time.Second

// Policy describes how often and how patiently an operation is retried.
// MaxRetries counts retries after the first attempt.
type Policy struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// OnRetry observes each scheduled retry.
	OnRetry func(name string, attempt int, err error)
	// Jitter returns a factor in [0,1) used to spread the wait. Defaults to math/rand.
	Jitter func() float64
}

var (
	PricePrimary  = Policy{Name: "price_primary", MaxRetries: 3, BaseDelay: time.Second, MaxDelay: DefaultMaxDelay}
	PriceFallback = Policy{Name: "price_fallback", MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: DefaultMaxDelay}
	News          = Policy{Name: "news", MaxRetries: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: DefaultMaxDelay}
)

// Named returns a copy of p reporting as name.
func (p Policy) Named(name string) Policy {
	p.Name = name
	return p
}

// Do runs op until it succeeds, returns a permanent error, or the policy is
// exhausted. The error of the last attempt is returned unchanged.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := max(p.MaxRetries, 0)
	attempt := 0

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && IsPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(newExponential(p)),
		backoff.WithMaxTries(uint(maxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("attempt failed, retrying",
				"op", p.Name, "attempt", attempt, "of", maxRetries+1,
				"wait", wait.Round(time.Millisecond), "err", err)
			if p.OnRetry != nil {
				p.OnRetry(p.Name, attempt, err)
			}
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if err != nil {
		if IsPermanent(err) {
			logger.Debug("permanent failure, not retrying", "op", p.Name, "err", err)
		} else {
			logger.Error("all attempts failed", "op", p.Name, "attempts", attempt, "err", err)
		}
	}
	return res, err
}

// IsPermanent reports whether err signals a condition that will not go away
// on retry: unknown or invalid symbols.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, stock.ErrNotFound) || errors.Is(err, stock.ErrInvalidSymbol) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "invalid symbol")
}

// exponential yields min(base*2^k, max) plus 10-30% jitter for attempt k.
type exponential struct {
	base, max time.Duration
	jitter    func() float64
	attempt   int
}

func newExponential(p Policy) *exponential {
	e := &exponential{base: p.BaseDelay, max: p.MaxDelay, jitter: p.Jitter}
	if e.max <= 0 {
		e.max = DefaultMaxDelay
	}
	if e.jitter == nil {
		e.jitter = rand.Float64
	}
	return e
}

func (e *exponential) NextBackOff() time.Duration {
	d := Delay(e.base, e.max, e.attempt, e.jitter())
	e.attempt++
	return d
}

func (e *exponential) Reset() { e.attempt = 0 }

// Delay computes the wait before retry attempt (zero based). u in [0,1)
// selects the jitter within 10-30% of the capped delay.
func Delay(base, maxDelay time.Duration, attempt int, u float64) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt))
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	return time.Duration(d * (1 + 0.1 + 0.2*u))
}
