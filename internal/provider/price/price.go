// Package price resolves a quote snapshot for a symbol from an ordered list of
// sources, falling back to the next source when one fails.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stocksentiment/internal/provider/ratelimit"
	"stocksentiment/internal/provider/retry"
	"stocksentiment/internal/stock"
)

// Source fetches a snapshot from one upstream.
//
//go:generate mockgen -package=price_test -destination=mock_source_test.go -source=price.go
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (stock.PriceSnapshot, error)
}

// Stage is a source together with the limiter and retry policy applied to
// every call made to it.
type Stage struct {
	Source  Source
	Limiter ratelimit.Limiter
	Policy  retry.Policy
}

// Provider tries each stage in order and returns the first success.
type Provider struct {
	stages  []Stage
	log     *slog.Logger
	observe func(source string, err error)
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// WithObserver registers a callback invoked after each stage with its final
// outcome (err is nil on success).
func WithObserver(fn func(source string, err error)) ProviderOption {
	return func(p *Provider) { p.observe = fn }
}

func NewProvider(stages []Stage, opts ...ProviderOption) *Provider {
	p := &Provider{stages: stages, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "price")
	return p
}

// Fetch returns the snapshot from the first stage that succeeds. When every
// stage fails the result is a *stock.SentimentError joining all causes.
func (p *Provider) Fetch(ctx context.Context, symbol string) (stock.PriceSnapshot, error) {
	var (
		errs  []error
		notes []string
	)
	for i, st := range p.stages {
		name := st.Source.Name()
		if i > 0 {
			p.log.Warn("falling back to next price source", "symbol", symbol, "source", name)
		}
		p.log.Info("fetching price", "symbol", symbol, "source", name)

		op := ratelimit.Wrap(st.Limiter, func(ctx context.Context) (stock.PriceSnapshot, error) {
			return st.Source.Fetch(ctx, symbol)
		})
		snap, err := retry.Do(ctx, st.Policy.Named(name), p.log, op)
		if p.observe != nil {
			p.observe(name, err)
		}
		if err == nil {
			return snap, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		notes = append(notes, fmt.Sprintf("%s: %v", name, err))
	}

	p.log.Error("all price sources failed", "symbol", symbol, "errors", strings.Join(notes, "; "))
	return stock.PriceSnapshot{}, stock.Wrap(symbol, errors.Join(errs...),
		fmt.Sprintf("Failed to fetch price data for %s from all sources", symbol))
}
