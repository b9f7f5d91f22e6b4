// Package metrics holds the Prometheus collectors of the pipeline. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stocksentiment"

type Metrics struct {
	Registry *prometheus.Registry

	CacheLookups    *prometheus.CounterVec
	CacheSwept      prometheus.Counter
	Resolutions     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	UpstreamCalls   *prometheus.CounterVec
	Retries         *prometheus.CounterVec
	RateLimitWait   *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
}

// New creates the collectors on a private registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result (hit, miss).",
		}, []string{"result"}),
		CacheSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "swept_entries_total",
			Help:      "Expired cache entries removed by sweeps.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Symbol resolutions by outcome (cached, ok, error).",
		}, []string{"outcome"}),
		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve one symbol.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Upstream source calls after retries, by source and outcome.",
		}, []string{"source", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retries scheduled, by operation.",
		}, []string{"op"}),
		RateLimitWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the rate limiter, by class.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"class"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CacheLookups, m.CacheSwept, m.Resolutions, m.ResolveDuration,
		m.UpstreamCalls, m.Retries, m.RateLimitWait, m.HTTPRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Resolved(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
	m.ResolveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Upstream records the final outcome of one source call.
func (m *Metrics) Upstream(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamCalls.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Retry(op string, _ int, _ error) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

// RateLimitObserver returns a wait callback for the limiter of class.
func (m *Metrics) RateLimitObserver(class string) func(time.Duration) {
	if m == nil {
		return nil
	}
	h := m.RateLimitWait.WithLabelValues(class)
	return func(d time.Duration) { h.Observe(d.Seconds()) }
}

func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheSwept.Add(float64(n))
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
