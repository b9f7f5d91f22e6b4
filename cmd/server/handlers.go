package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stocksentiment/internal/aggregate"
	"stocksentiment/internal/cache"
	"stocksentiment/internal/metrics"
	"stocksentiment/internal/stock"
	"stocksentiment/internal/web"
)

const maxBody = 1 << 20 // 1MB

type resolver interface {
	Resolve(ctx context.Context, raw string) (stock.StockResult, error)
	ResolveBatch(ctx context.Context, symbols []string) []aggregate.Outcome
}

type handlers struct {
	agg        resolver
	cache      cache.Store
	metrics    *metrics.Metrics
	log        *slog.Logger
	maxCompare int
	maxChart   int
}

type routerConfig struct {
	RequestTimeout time.Duration
	AllowOrigins   []string
}

func newRouter(h *handlers, tmpl *template.Template, rc routerConfig) *gin.Engine {
	if h.maxCompare <= 0 {
		h.maxCompare = aggregate.MaxCompare
	}
	if h.maxChart <= 0 {
		h.maxChart = aggregate.MaxChart
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	corsCfg := cors.Config{
		AllowOrigins: rc.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(rc.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}

	r := gin.New()
	r.Use(
		recoverPanic(h.log),
		accessLog(h.log, h.metrics),
		cors.New(corsCfg),
		withGzip("/metrics"),
		limitBody(maxBody),
		withTimeout(rc.RequestTimeout),
	)
	if tmpl != nil {
		r.SetHTMLTemplate(tmpl)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Stock Sentiment Tracker API"})
	})
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	r.GET("/dashboard", func(c *gin.Context) { c.HTML(http.StatusOK, web.Dashboard, nil) })
	r.GET("/stock/:symbol", h.stockJSON)
	r.GET("/stock/:symbol/html", h.stockHTML)
	r.GET("/compare", h.compare)
	r.GET("/compare/html", h.compareHTML)
	r.GET("/chart/html", h.chartHTML)

	r.POST("/cache/clear", h.clearCache)
	r.GET("/cache/status", h.cacheStatus)
	return r
}

// detail maps a pipeline error to the status and message shown to callers.
func detail(err error) (int, string) {
	var se *stock.SentimentError
	if errors.As(err, &se) {
		return http.StatusBadRequest, se.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *handlers) stockJSON(c *gin.Context) {
	res, err := h.agg.Resolve(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		code, msg := detail(err)
		c.JSON(code, gin.H{"detail": msg})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) stockHTML(c *gin.Context) {
	res, err := h.agg.Resolve(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		code, msg := detail(err)
		c.HTML(code, web.Error, web.ErrorPage{Error: msg, Symbols: []string{c.Param("symbol")}})
		return
	}
	c.HTML(http.StatusOK, web.StockInfo, res)
}

// batch validates the symbols query and resolves them.
func (h *handlers) batch(c *gin.Context, maxN int, what string) ([]string, []aggregate.Outcome, error) {
	symbols := aggregate.SplitSymbols(c.QueryArray("symbols"))
	if err := aggregate.CheckBatchSize(len(symbols), maxN, what); err != nil {
		return symbols, nil, err
	}
	return symbols, h.agg.ResolveBatch(c.Request.Context(), symbols), nil
}

func (h *handlers) compare(c *gin.Context) {
	_, outcomes, err := h.batch(c, h.maxCompare, "comparison")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	cmp := aggregate.Compare(outcomes)
	if cmp.Summary.Successful == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No valid stock data could be retrieved", "errors": cmp.Errors})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *handlers) compareHTML(c *gin.Context) {
	symbols, outcomes, err := h.batch(c, h.maxCompare, "comparison")
	if err != nil {
		c.HTML(http.StatusBadRequest, web.Error, web.ErrorPage{Error: err.Error(), Symbols: symbols})
		return
	}
	cmp := aggregate.Compare(outcomes)
	if cmp.Summary.Successful == 0 {
		c.HTML(http.StatusBadRequest, web.Error, web.ErrorPage{Error: "No valid stock data could be retrieved", Symbols: symbols})
		return
	}
	c.HTML(http.StatusOK, web.Comparison, web.ComparisonPage{Symbols: symbols, Comparison: cmp})
}

func (h *handlers) chartHTML(c *gin.Context) {
	symbols, outcomes, err := h.batch(c, h.maxChart, "chart")
	if err != nil {
		c.HTML(http.StatusBadRequest, web.Error, web.ErrorPage{Error: err.Error(), Symbols: symbols})
		return
	}
	chart := aggregate.ChartOf(outcomes)
	if len(chart.Points) == 0 {
		c.HTML(http.StatusBadRequest, web.Error, web.ErrorPage{Error: "No valid stock data could be retrieved for chart", Symbols: symbols})
		return
	}
	c.HTML(http.StatusOK, web.Chart, chart)
}

func (h *handlers) clearCache(c *gin.Context) {
	removed := 0
	if h.cache != nil {
		removed = h.cache.ClearExpired()
		h.metrics.Swept(removed)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expired cache entries cleared", "removed": removed})
}

func (h *handlers) cacheStatus(c *gin.Context) {
	infos := make([]cache.Info, 0)
	location := ""
	if h.cache != nil {
		location = h.cache.Location()
		var err error
		if infos, err = h.cache.Status(); err != nil {
			h.log.Error("cache status failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
	}
	if infos == nil {
		infos = []cache.Info{}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Symbol < infos[j].Symbol })
	c.JSON(http.StatusOK, gin.H{
		"cache_directory":      location,
		"total_cached_symbols": len(infos),
		"cached_symbols":       infos,
	})
}
