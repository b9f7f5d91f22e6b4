// Package ratelimit gates outbound calls to an upstream class (price, news).
package ratelimit

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Limiter blocks the caller until one more outbound call is allowed.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Wrap gates op behind l: every call acquires before running.
func Wrap[T any](l Limiter, op func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	if l == nil {
		return op
	}
	return func(ctx context.Context) (T, error) {
		if err := l.Acquire(ctx); err != nil {
			var zero T
			return zero, err
		}
		return op(ctx)
	}
}

// MinInterval enforces a minimum time between calls across all goroutines
// sharing it. A call that arrives too early sleeps for the remaining time
// plus a random jitter in [JitterMin, JitterMax].
//
// Slots are reserved under the lock, so N concurrent callers end up spaced at
// least Interval apart. The zero value admits everything; Now, Sleep and
// Jitter default to the real clock and math/rand.
type MinInterval struct {
	Interval  time.Duration
	JitterMin time.Duration
	JitterMax time.Duration

	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(min, max time.Duration) time.Duration
	// OnWait observes every non-zero wait, e.g. for metrics.
	OnWait func(d time.Duration)
	Logger *slog.Logger
	Name   string

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Acquire(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	now := m.now()

	m.mu.Lock()
	var wait time.Duration
	next := now
	if !m.last.IsZero() {
		if gap := now.Sub(m.last); gap < m.Interval {
			wait = m.Interval - gap + m.jitter()
			next = now.Add(wait)
		}
	}
	m.last = next
	m.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if m.OnWait != nil {
		m.OnWait(wait)
	}
	if m.Logger != nil {
		m.Logger.Info("rate limiting", "limiter", m.Name, "sleep", wait.Round(time.Millisecond))
	}
	return m.sleep(ctx, wait)
}

func (m *MinInterval) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MinInterval) jitter() time.Duration {
	if m.Jitter != nil {
		return m.Jitter(m.JitterMin, m.JitterMax)
	}
	return RandomJitter(m.JitterMin, m.JitterMax)
}

func (m *MinInterval) sleep(ctx context.Context, d time.Duration) error {
	if m.Sleep != nil {
		return m.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// RandomJitter returns a uniformly random duration in [lo, hi].
func RandomJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
