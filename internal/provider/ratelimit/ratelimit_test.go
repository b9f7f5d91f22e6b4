package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	return nil
}

func TestMinInterval_SuccessiveCallsAreSpaced(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: start}
	m := &MinInterval{
		Interval:  time.Second,
		JitterMin: 100 * time.Millisecond,
		JitterMax: 500 * time.Millisecond,
		Now:       clk.Now,
		Sleep:     clk.Sleep,
	}

	require.NoError(t, m.Acquire(t.Context()))
	require.NoError(t, m.Acquire(t.Context()))

	require.Len(t, clk.sleeps, 1, "first call must not wait")
	require.GreaterOrEqual(t, clk.sleeps[0], 1100*time.Millisecond)
	require.LessOrEqual(t, clk.sleeps[0], 1500*time.Millisecond)
}

func TestMinInterval_NoWaitAfterInterval(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	m := &MinInterval{Interval: time.Second, Now: clk.Now, Sleep: clk.Sleep}

	require.NoError(t, m.Acquire(t.Context()))
	clk.t = clk.t.Add(1500 * time.Millisecond)
	require.NoError(t, m.Acquire(t.Context()))
	require.Empty(t, clk.sleeps)
}

func TestMinInterval_ConcurrentCallersReserveDistinctSlots(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	m := &MinInterval{
		Interval: time.Second,
		Now:      clk.Now,
		Sleep:    clk.Sleep,
		Jitter:   func(lo, _ time.Duration) time.Duration { return lo },
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, m.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	sort.Slice(clk.sleeps, func(i, j int) bool { return clk.sleeps[i] < clk.sleeps[j] })
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}, clk.sleeps)
}

func TestMinInterval_RealClock(t *testing.T) {
	t.Parallel()

	m := &MinInterval{Interval: 50 * time.Millisecond}
	require.NoError(t, m.Acquire(t.Context()))
	start := time.Now()
	require.NoError(t, m.Acquire(t.Context()))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMinInterval_ContextCanceled(t *testing.T) {
	t.Parallel()

	m := &MinInterval{Interval: time.Hour}
	require.NoError(t, m.Acquire(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := m.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMinInterval_OnWait(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	var observed []time.Duration
	m := &MinInterval{
		Interval: time.Second, Now: clk.Now, Sleep: clk.Sleep,
		OnWait: func(d time.Duration) { observed = append(observed, d) },
	}
	require.NoError(t, m.Acquire(t.Context()))
	require.NoError(t, m.Acquire(t.Context()))
	require.Equal(t, []time.Duration{time.Second}, observed)
}

func TestRandomJitter_Bounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		j := RandomJitter(100*time.Millisecond, 500*time.Millisecond)
		require.GreaterOrEqual(t, j, 100*time.Millisecond)
		require.LessOrEqual(t, j, 500*time.Millisecond)
	}
	require.Equal(t, time.Second, RandomJitter(time.Second, 0))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	calls := 0
	op := func(context.Context) (int, error) { calls++; return 7, nil }

	v, err := Wrap[int](nil, op)(t.Context())
	require.NoError(t, err)
	require.Equal(t, 7, v)

	denied := errors.New("denied")
	_, err = Wrap(limiterFunc(func(context.Context) error { return denied }), op)(t.Context())
	require.ErrorIs(t, err, denied)
	require.Equal(t, 1, calls, "op must not run when acquire fails")
}

type limiterFunc func(context.Context) error

func (f limiterFunc) Acquire(ctx context.Context) error { return f(ctx) }

func TestTokenBucket(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(0, 1)
	for i := 0; i < 10; i++ {
		require.NoError(t, tb.Acquire(t.Context()))
	}

	slow := NewTokenBucket(1, 1)
	require.NoError(t, slow.Acquire(t.Context()))
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, slow.Acquire(ctx))
}
