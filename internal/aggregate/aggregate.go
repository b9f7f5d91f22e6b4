// Package aggregate resolves a symbol into a StockResult: cache lookup,
// concurrent price and news fetch, sentiment scoring and cache write-through.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stocksentiment/internal/cache"
	"stocksentiment/internal/stock"
)

// DefaultBatchConcurrency bounds concurrent resolutions within one batch.
const DefaultBatchConcurrency = 5

// PriceFetcher resolves a price snapshot, failing with *stock.SentimentError.
//
//go:generate mockgen -package=aggregate_test -destination=mock_fetchers_test.go -source=aggregate.go
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string) (stock.PriceSnapshot, error)
}

// NewsFetcher resolves deduplicated headlines, failing with *stock.SentimentError.
type NewsFetcher interface {
	Fetch(ctx context.Context, symbol string) ([]string, error)
}

// Scorer turns headlines into a summary. It never fails.
type Scorer interface {
	Score(headlines []string) stock.SentimentSummary
}

// Observer receives pipeline events, e.g. for metrics.
type Observer interface {
	CacheLookup(hit bool)
	Resolved(outcome string, elapsed time.Duration)
}

// Resolution outcomes reported to the Observer.
const (
	OutcomeCached = "cached"
	OutcomeOK     = "ok"
	OutcomeError  = "error"
)

type Aggregator struct {
	price      PriceFetcher
	news       NewsFetcher
	scorer     Scorer
	cache      cache.Store
	log        *slog.Logger
	obs        Observer
	batchLimit int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.obs = o }
}

// WithBatchConcurrency bounds how many symbols of a batch resolve at once.
func WithBatchConcurrency(n int) Option {
	return func(a *Aggregator) { a.batchLimit = n }
}

// New builds an Aggregator. A nil store disables caching.
func New(price PriceFetcher, news NewsFetcher, scorer Scorer, store cache.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		price:      price,
		news:       news,
		scorer:     scorer,
		cache:      store,
		log:        slog.Default(),
		batchLimit: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.batchLimit <= 0 {
		a.batchLimit = DefaultBatchConcurrency
	}
	a.log = a.log.With("component", "aggregate")
	return a
}

// Resolve returns the aggregate for one symbol. All failures are reported as
// *stock.SentimentError and nothing is cached for a failed resolution.
func (a *Aggregator) Resolve(ctx context.Context, raw string) (stock.StockResult, error) {
	start := time.Now()
	symbol, err := stock.Canonical(raw)
	if err != nil {
		a.report(OutcomeError, start)
		return stock.StockResult{}, err
	}

	if a.cache != nil {
		res, ok := a.cache.Get(symbol)
		if a.obs != nil {
			a.obs.CacheLookup(ok)
		}
		if ok {
			a.log.Debug("serving cached result", "symbol", symbol)
			a.report(OutcomeCached, start)
			return res, nil
		}
	}

	res, err := a.fetch(ctx, symbol)
	if err != nil {
		a.log.Error("resolve failed", "symbol", symbol, "error", err)
		a.report(OutcomeError, start)
		return stock.StockResult{}, stock.AsSentimentError(symbol, err)
	}
	if a.cache != nil {
		a.cache.Set(symbol, res)
	}
	a.log.Info("resolved", "symbol", symbol, "articles", res.TotalArticles,
		"sentiment", res.SentimentAnalysis.OverallSentiment, "elapsed", time.Since(start).Round(time.Millisecond))
	a.report(OutcomeOK, start)
	return res, nil
}

func (a *Aggregator) fetch(ctx context.Context, symbol string) (stock.StockResult, error) {
	var (
		snap      stock.PriceSnapshot
		headlines []string
		g         errgroup.Group
	)
	g.Go(func() error {
		var err error
		snap, err = a.price.Fetch(ctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		headlines, err = a.news.Fetch(ctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return stock.StockResult{}, err
	}

	return stock.StockResult{
		Symbol:            symbol,
		PriceData:         snap,
		NewsHeadlines:     headlines,
		SentimentAnalysis: a.scorer.Score(headlines),
		TotalArticles:     len(headlines),
	}, nil
}

func (a *Aggregator) report(outcome string, start time.Time) {
	if a.obs != nil {
		a.obs.Resolved(outcome, time.Since(start))
	}
}

// Outcome is the per-symbol result of a batch. Exactly one of Result and Err
// is set.
type Outcome struct {
	Symbol string
	Result *stock.StockResult
	Err    error
}

// ResolveBatch resolves every symbol independently and returns outcomes in
// input order. One symbol failing never affects the others.
func (a *Aggregator) ResolveBatch(ctx context.Context, symbols []string) []Outcome {
	out := make([]Outcome, len(symbols))
	var g errgroup.Group
	g.SetLimit(a.batchLimit)
	for i, raw := range symbols {
		g.Go(func() error {
			o := Outcome{Symbol: strings.ToUpper(strings.TrimSpace(raw))}
			res, err := a.Resolve(ctx, raw)
			if err != nil {
				o.Err = err
			} else {
				o.Symbol = res.Symbol
				o.Result = &res
			}
			out[i] = o
			return nil
		})
	}
	_ = g.Wait()
	return out
}
