// Package cache stores resolved StockResults for a bounded time.
//
// Caching is an optimization only: every failure is logged and reported as a
// miss, never returned to the caller.
package cache

import (
	"time"

	"stocksentiment/internal/stock"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = 15 * time.Minute

// Store is a time-boxed symbol -> StockResult store.
type Store interface {
	Get(symbol string) (stock.StockResult, bool)
	Set(symbol string, result stock.StockResult)
	// ClearExpired removes every entry older than the TTL and returns how many were removed.
	ClearExpired() int
	// Status lists the entries currently held (fresh or not yet swept).
	Status() ([]Info, error)
	// Location describes where entries live (a directory, or "memory").
	Location() string
}

// Info describes one stored entry.
type Info struct {
	Symbol    string  `json:"symbol"`
	SizeBytes int64   `json:"size_bytes"`
	Modified  float64 `json:"modified"`
}

type options struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock injects the time source used for stamping and expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
