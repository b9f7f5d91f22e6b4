package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"stocksentiment/internal/app"
	"stocksentiment/internal/cache"
	"stocksentiment/internal/config"
	"stocksentiment/internal/logging"
	"stocksentiment/internal/metrics"
	"stocksentiment/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}
	logger, closer, err := logging.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	pipeline, err := app.Build(cfg, logger, m)
	if err != nil {
		return err
	}
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	h := &handlers{
		agg:        pipeline.Aggregator,
		cache:      pipeline.Cache,
		metrics:    m,
		log:        logger,
		maxCompare: cfg.Batch.MaxCompare,
		maxChart:   cfg.Batch.MaxChart,
	}
	router := newRouter(h, tmpl, routerConfig{
		RequestTimeout: cfg.Server.RequestTimeout(),
		AllowOrigins:   cfg.Server.CORSOrigins,
	})

	sweeper, err := startSweeper(cfg.Cache.SweepSpec, pipeline.Cache, m, logger)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// batches resolve many symbols upstream
		WriteTimeout: cfg.Server.RequestTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "cache", cacheLocation(pipeline.Cache))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startSweeper clears expired cache entries on spec. An empty spec or a nil
// store disables it.
func startSweeper(spec string, store cache.Store, m *metrics.Metrics, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	if spec == "" || store == nil {
		return c, nil
	}
	_, err := c.AddFunc(spec, func() {
		n := store.ClearExpired()
		m.Swept(n)
		if n > 0 {
			logger.Info("swept expired cache entries", "removed", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cache sweep spec %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func cacheLocation(s cache.Store) string {
	if s == nil {
		return "disabled"
	}
	return s.Location()
}
