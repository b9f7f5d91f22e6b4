package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string   `yaml:"port"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	ShutdownGraceSec  int      `yaml:"shutdown_grace_sec"`
	// CORSOrigins empty allows every origin.
	CORSOrigins       []string `yaml:"cors_origins"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type Cache struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	TTLSec    int    `yaml:"ttl_sec"`
	MaxItems  int    `yaml:"max_items"`
	SweepSpec string `yaml:"sweep_spec"`
}

// Limit configures the limiter shared by one class of upstream calls.
// MaxRequestsPerMinute > 0 switches from minimum interval to token bucket.
type Limit struct {
	MinIntervalMs        int `yaml:"min_interval_ms"`
	JitterMinMs          int `yaml:"jitter_min_ms"`
	JitterMaxMs          int `yaml:"jitter_max_ms"`
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	Burst                int `yaml:"burst"`
}

type RateLimit struct {
	Price Limit `yaml:"price"`
	News  Limit `yaml:"news"`
}

type Retry struct {
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

type Retries struct {
	PricePrimary  Retry `yaml:"price_primary"`
	PriceFallback Retry `yaml:"price_fallback"`
	News          Retry `yaml:"news"`
}

type HTTP struct {
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
}

// Sources overrides upstream base URLs. Empty means the built-in default.
type Sources struct {
	YahooChartURL string `yaml:"yahoo_chart_url"`
	YahooQuoteURL string `yaml:"yahoo_quote_url"`
	GoogleNewsURL string `yaml:"google_news_url"`
}

type News struct {
	MaxHeadlines int `yaml:"max_headlines"`
	Workers      int `yaml:"workers"`
}

type Batch struct {
	MaxCompare  int `yaml:"max_compare"`
	MaxChart    int `yaml:"max_chart"`
	Concurrency int `yaml:"concurrency"`
}

type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Cache     Cache     `yaml:"cache"`
	RateLimit RateLimit `yaml:"ratelimit"`
	Retry     Retries   `yaml:"retry"`
	HTTP      HTTP      `yaml:"http"`
	Sources   Sources   `yaml:"sources"`
	News      News      `yaml:"news"`
	Batch     Batch     `yaml:"batch"`
}

func Default() Config {
	limit := Limit{MinIntervalMs: 1000, JitterMinMs: 100, JitterMaxMs: 500, Burst: 1}
	return Config{
		Server: Server{Port: "8000", RequestTimeoutSec: 120, ShutdownGraceSec: 10},
		Log: Log{
			Level: "info", Format: "text", Output: "stdout", File: "logs/stocksentiment.log",
			MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28,
		},
		Cache:     Cache{Backend: "file", Dir: "cache", TTLSec: 900, MaxItems: 1000, SweepSpec: "@every 5m"},
		RateLimit: RateLimit{Price: limit, News: limit},
		Retry: Retries{
			PricePrimary:  Retry{MaxRetries: 3, BaseDelayMs: 1000, MaxDelayMs: 60000},
			PriceFallback: Retry{MaxRetries: 2, BaseDelayMs: 500, MaxDelayMs: 60000},
			News:          Retry{MaxRetries: 2, BaseDelayMs: 500, MaxDelayMs: 60000},
		},
		HTTP:  HTTP{TimeoutSec: 10},
		News:  News{MaxHeadlines: 15, Workers: 2},
		Batch: Batch{MaxCompare: 10, MaxChart: 20, Concurrency: 5},
	}
}

// Load reads YAML config from path. If path is empty it falls back to
// $CONFIG_FILE, then ./config.yaml when present, then defaults. Environment
// variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	envInt("CACHE_TTL_SEC", &cfg.Cache.TTLSec, 1)
	envInt("PRICE_MIN_INTERVAL_MS", &cfg.RateLimit.Price.MinIntervalMs, 0)
	envInt("NEWS_MIN_INTERVAL_MS", &cfg.RateLimit.News.MinIntervalMs, 0)
	envInt("HTTP_TIMEOUT_SEC", &cfg.HTTP.TimeoutSec, 1)
	if v := os.Getenv("HTTP_USER_AGENT"); v != "" {
		cfg.HTTP.UserAgent = v
	}
}

// envInt sets *dst from the named variable when it parses to at least minVal.
func envInt(name string, dst *int, minVal int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= minVal {
		*dst = x
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port != "", "server.port is required")
	check(c.Server.RequestTimeoutSec > 0, "server.request_timeout_sec must be positive")
	check(oneOf(c.Log.Level, "debug", "info", "warn", "error"), "log.level %q is not one of debug|info|warn|error", c.Log.Level)
	check(oneOf(c.Log.Format, "json", "text"), "log.format %q is not one of json|text", c.Log.Format)
	check(oneOf(c.Log.Output, "stdout", "file", "both"), "log.output %q is not one of stdout|file|both", c.Log.Output)
	check(oneOf(c.Cache.Backend, "file", "memory"), "cache.backend %q is not one of file|memory", c.Cache.Backend)
	check(c.Cache.Backend != "file" || c.Cache.Dir != "", "cache.dir is required for the file backend")
	check(c.Cache.TTLSec > 0, "cache.ttl_sec must be positive")

	for name, l := range map[string]Limit{"price": c.RateLimit.Price, "news": c.RateLimit.News} {
		check(l.MinIntervalMs >= 0, "ratelimit.%s.min_interval_ms must not be negative", name)
		check(l.JitterMinMs >= 0 && l.JitterMaxMs >= l.JitterMinMs, "ratelimit.%s jitter range is invalid", name)
		check(l.MaxRequestsPerMinute >= 0, "ratelimit.%s.max_requests_per_minute must not be negative", name)
	}
	for name, r := range map[string]Retry{
		"price_primary": c.Retry.PricePrimary, "price_fallback": c.Retry.PriceFallback, "news": c.Retry.News,
	} {
		check(r.MaxRetries >= 0, "retry.%s.max_retries must not be negative", name)
		check(r.BaseDelayMs >= 0 && r.MaxDelayMs >= r.BaseDelayMs, "retry.%s delays are invalid", name)
	}

	check(c.HTTP.TimeoutSec > 0, "http.timeout_sec must be positive")
	check(c.News.MaxHeadlines > 0, "news.max_headlines must be positive")
	check(c.News.Workers > 0, "news.workers must be positive")
	check(c.Batch.MaxCompare >= 2, "batch.max_compare must be at least 2")
	check(c.Batch.MaxChart >= 2, "batch.max_chart must be at least 2")
	check(c.Batch.Concurrency > 0, "batch.concurrency must be positive")
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (l Limit) MinInterval() time.Duration { return ms(l.MinIntervalMs) }
func (l Limit) JitterMin() time.Duration   { return ms(l.JitterMinMs) }
func (l Limit) JitterMax() time.Duration   { return ms(l.JitterMaxMs) }

func (r Retry) BaseDelay() time.Duration { return ms(r.BaseDelayMs) }
func (r Retry) MaxDelay() time.Duration  { return ms(r.MaxDelayMs) }

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

func (h HTTP) Timeout() time.Duration { return time.Duration(h.TimeoutSec) * time.Second }

func (s Server) RequestTimeout() time.Duration { return time.Duration(s.RequestTimeoutSec) * time.Second }

func (s Server) ShutdownGrace() time.Duration { return time.Duration(s.ShutdownGraceSec) * time.Second }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
