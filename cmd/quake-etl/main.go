package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/quake-data-etl/internal/app"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics, app.WithClock(clock))
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	ready := app.Readiness{a.Store}
	var runner *pipeline.Runner
	if cfg.ScrapeInterval > 0 {
		runner = pipeline.NewRunner(a.Scraper, cfg.ScrapeInterval, clock, logger, metrics)
		ready = append(ready, runner)
	} else {
		logger.Info("scheduled scraping disabled; use POST /scrape")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Query:     a.Query,
		Scraper:   a.Scraper,
		Ready:     ready,
		RateLimit: cfg.ScrapeRateLimit,
		Clock:     clock,
		Logger:    logger,
	})

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start scheduled scraping.
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if runner == nil {
			return
		}
		if err := runner.Run(ctx); err != nil {
			logger.Error("runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		logger.Warn("runner did not stop before shutdown timeout")
	}
	if err := a.Close(); err != nil {
		logger.Error("close error", "error", err)
	}

	logger.Info("shutdown complete")
}
