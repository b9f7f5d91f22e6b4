// Package app wires config into a ready pipeline shared by the binaries.
package app

import (
	"fmt"
	"log/slog"

	"stocksentiment/internal/aggregate"
	"stocksentiment/internal/cache"
	"stocksentiment/internal/config"
	"stocksentiment/internal/httpx"
	"stocksentiment/internal/metrics"
	"stocksentiment/internal/provider/news"
	"stocksentiment/internal/provider/price"
	"stocksentiment/internal/provider/ratelimit"
	"stocksentiment/internal/provider/retry"
	"stocksentiment/internal/sentiment"
)

// App is the assembled pipeline.
type App struct {
	Aggregator *aggregate.Aggregator
	Cache      cache.Store
	Metrics    *metrics.Metrics
}

type options struct {
	noCache bool
	client  *httpx.Client
	scorer  aggregate.Scorer
}

// Option adjusts how the pipeline is built.
type Option func(*options)

// WithoutCache resolves every request upstream.
func WithoutCache() Option { return func(o *options) { o.noCache = true } }

// WithHTTPClient replaces the outbound client.
func WithHTTPClient(c *httpx.Client) Option { return func(o *options) { o.client = c } }

// WithScorer replaces the VADER scorer.
func WithScorer(s aggregate.Scorer) Option { return func(o *options) { o.scorer = s } }

// Build assembles the pipeline. m may be nil.
func Build(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := o.client
	if client == nil {
		client = httpx.New(cfg.HTTP.Timeout())
		if cfg.HTTP.UserAgent != "" {
			client.UserAgent = cfg.HTTP.UserAgent
		}
	}

	priceLimiter := Limiter(cfg.RateLimit.Price, "price", logger, m)
	newsLimiter := Limiter(cfg.RateLimit.News, "news", logger, m)

	var chartOpts []price.ChartOption
	if cfg.Sources.YahooChartURL != "" {
		chartOpts = append(chartOpts, price.WithChartBaseURL(cfg.Sources.YahooChartURL))
	}
	var pageOpts []price.PageOption
	if cfg.Sources.YahooQuoteURL != "" {
		pageOpts = append(pageOpts, price.WithPageBaseURL(cfg.Sources.YahooQuoteURL))
	}

	prices := price.NewProvider([]price.Stage{
		{
			Source:  price.NewYahooChart(client, chartOpts...),
			Limiter: priceLimiter,
			Policy:  Policy(cfg.Retry.PricePrimary, retry.PricePrimary, m),
		},
		{
			Source:  price.NewYahooPage(client, pageOpts...),
			Limiter: priceLimiter,
			Policy:  Policy(cfg.Retry.PriceFallback, retry.PriceFallback, m),
		},
	}, price.WithLogger(logger), price.WithObserver(m.Upstream))

	newsPolicy := Policy(cfg.Retry.News, retry.News, m)
	headlines := news.NewProvider([]news.Stage{
		{Source: news.NewYahooNews(client, cfg.Sources.YahooQuoteURL), Limiter: newsLimiter, Policy: newsPolicy},
		{Source: news.NewGoogleNews(client, cfg.Sources.GoogleNewsURL), Limiter: newsLimiter, Policy: newsPolicy},
	},
		news.WithLogger(logger),
		news.WithWorkers(cfg.News.Workers),
		news.WithMaxHeadlines(cfg.News.MaxHeadlines),
		news.WithObserver(m.Upstream),
	)

	scorer := o.scorer
	if scorer == nil {
		scorer = sentiment.NewScorer(sentiment.NewVader(), logger)
	}

	var store cache.Store
	if !o.noCache {
		var err error
		if store, err = Cache(cfg.Cache, logger); err != nil {
			return nil, err
		}
	}

	aggOpts := []aggregate.Option{
		aggregate.WithLogger(logger),
		aggregate.WithBatchConcurrency(cfg.Batch.Concurrency),
	}
	if m != nil {
		aggOpts = append(aggOpts, aggregate.WithObserver(m))
	}
	return &App{
		Aggregator: aggregate.New(prices, headlines, scorer, store, aggOpts...),
		Cache:      store,
		Metrics:    m,
	}, nil
}

// Limiter builds the limiter shared by one class of upstream calls: a token
// bucket when a per-minute quota is set, otherwise a minimum interval.
func Limiter(l config.Limit, class string, logger *slog.Logger, m *metrics.Metrics) ratelimit.Limiter {
	if l.MaxRequestsPerMinute > 0 {
		return ratelimit.NewTokenBucket(l.MaxRequestsPerMinute, l.Burst)
	}
	return &ratelimit.MinInterval{
		Interval:  l.MinInterval(),
		JitterMin: l.JitterMin(),
		JitterMax: l.JitterMax(),
		OnWait:    m.RateLimitObserver(class),
		Logger:    logger,
		Name:      class,
	}
}

// Policy overlays configured values on a default policy.
func Policy(r config.Retry, def retry.Policy, m *metrics.Metrics) retry.Policy {
	p := def
	p.MaxRetries = r.MaxRetries
	p.BaseDelay = r.BaseDelay()
	if r.MaxDelayMs > 0 {
		p.MaxDelay = r.MaxDelay()
	}
	if m != nil {
		p.OnRetry = m.Retry
	}
	return p
}

// Cache opens the configured store.
func Cache(c config.Cache, logger *slog.Logger) (cache.Store, error) {
	switch c.Backend {
	case "memory":
		return cache.NewMemory(c.MaxItems, cache.WithTTL(c.TTL())), nil
	case "file", "":
		f, err := cache.NewFile(c.Dir, logger, cache.WithTTL(c.TTL()))
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}
