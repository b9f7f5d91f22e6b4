// Package news collects recent headlines for a symbol from several scraped
// sources queried concurrently.
package news

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"stocksentiment/internal/provider/ratelimit"
	"stocksentiment/internal/provider/retry"
	"stocksentiment/internal/stock"
)

// DefaultWorkers bounds how many sources are queried at once.
const DefaultWorkers = 2

// Source returns headlines from one upstream, most relevant first.
//
//go:generate mockgen -package=news_test -destination=mock_source_test.go -source=news.go
type Source interface {
	Name() string
	Headlines(ctx context.Context, symbol string) ([]string, error)
}

// Stage is a source with the limiter and retry policy applied to it.
type Stage struct {
	Source  Source
	Limiter ratelimit.Limiter
	Policy  retry.Policy
}

// Provider merges the headlines of every stage in stage order.
type Provider struct {
	stages  []Stage
	workers int
	max     int
	log     *slog.Logger
	observe func(source string, err error)
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// WithWorkers bounds concurrent source calls.
func WithWorkers(n int) ProviderOption {
	return func(p *Provider) { p.workers = n }
}

// WithMaxHeadlines caps the merged result.
func WithMaxHeadlines(n int) ProviderOption {
	return func(p *Provider) { p.max = n }
}

// WithObserver is called once per stage with the final outcome of that stage.
func WithObserver(fn func(source string, err error)) ProviderOption {
	return func(p *Provider) { p.observe = fn }
}

func NewProvider(stages []Stage, opts ...ProviderOption) *Provider {
	p := &Provider{
		stages:  stages,
		workers: DefaultWorkers,
		max:     stock.MaxHeadlines,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.max <= 0 {
		p.max = stock.MaxHeadlines
	}
	p.log = p.log.With("component", "news")
	return p
}

// Fetch queries all sources and returns the deduplicated headlines. A failing
// source contributes nothing; only an empty merged set is an error.
func (p *Provider) Fetch(ctx context.Context, symbol string) ([]string, error) {
	results := make([][]string, len(p.stages))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, st := range p.stages {
		g.Go(func() error {
			name := st.Source.Name()
			op := ratelimit.Wrap(st.Limiter, func(ctx context.Context) ([]string, error) {
				return st.Source.Headlines(ctx, symbol)
			})
			hs, err := retry.Do(ctx, st.Policy.Named(name), p.log, op)
			if p.observe != nil {
				p.observe(name, err)
			}
			if err != nil {
				p.log.Warn("news source failed", "symbol", symbol, "source", name, "error", err)
				return nil
			}
			p.log.Debug("news source done", "symbol", symbol, "source", name, "count", len(hs))
			results[i] = hs
			return nil
		})
	}
	_ = g.Wait()

	merged := Merge(p.max, results...)
	if len(merged) == 0 {
		p.log.Warn("no news headlines found", "symbol", symbol)
		return nil, stock.Errorf(symbol,
			"No recent news articles found for stock symbol %s. This could indicate an invalid symbol or lack of news coverage.", symbol)
	}
	return merged, nil
}

// Merge concatenates lists, drops blanks and repeats (first occurrence wins)
// and truncates to max entries.
func Merge(max int, lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, max)
	for _, list := range lists {
		for _, h := range list {
			h = strings.TrimSpace(h)
			if h == "" {
				continue
			}
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}
