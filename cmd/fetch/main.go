package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stocksentiment/internal/aggregate"
	"stocksentiment/internal/app"
	"stocksentiment/internal/config"
	"stocksentiment/internal/logging"
)

func main() {
	var symbolsCSV string
	var configPath string
	var noCache bool
	var timeout int

	_ = godotenv.Load()

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "AAPL"), "comma-separated ticker symbols")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
	flag.BoolVar(&noCache, "no-cache", false, "skip the cache and always fetch upstream")
	flag.IntVar(&timeout, "timeout", 0, "overall timeout seconds (0 uses server.request_timeout_sec)")
	flag.Parse()

	os.Exit(run(symbolsCSV, configPath, noCache, timeout, os.Stdout))
}

func run(symbolsCSV, configPath string, noCache bool, timeout int, out io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	// stdout carries the JSON result, console logs go to stderr
	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 2
	}
	defer closer.Close()

	symbols := aggregate.SplitSymbols([]string{symbolsCSV})
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols given")
		return 2
	}

	var opts []app.Option
	if noCache {
		opts = append(opts, app.WithoutCache())
	}
	pipeline, err := app.Build(cfg, logger, nil, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		return 2
	}

	d := cfg.Server.RequestTimeout()
	if timeout > 0 {
		d = time.Duration(timeout) * time.Second
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	cmp := aggregate.Compare(pipeline.Aggregator.ResolveBatch(ctx, symbols))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cmp); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		return 2
	}
	if cmp.Summary.Successful == 0 {
		return 1
	}
	return 0
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
