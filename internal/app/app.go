// Package app wires configuration into the collaborators shared by the
// service and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fetch"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/htmldoc"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/memory"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/extract"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// Store is what every persistence adapter provides.
type Store interface {
	pipeline.RecordStore
	query.Scanner
	sharedobs.ReadinessChecker
}

// App holds the wired collaborators.
type App struct {
	Store   Store
	Scraper *pipeline.Scraper
	Query   *query.Service

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	clock     clockwork.Clock
	transport http.RoundTripper
}

// WithClock sets the clock the scraper stamps records with.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTransport sets the HTTP transport used to fetch the source page.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New opens the configured store, applies migrations, and builds the scraper
// and query service on top of it. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{}
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	var sink pipeline.RecordStore = store
	if cfg.PublishEnabled() {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		ps := kafkaadapter.NewPublishingStore(store, w, logger, metrics)
		a.closers = append(a.closers, ps.Close)
		sink = ps
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	scraperOpts := []pipeline.ScraperOption{pipeline.WithClock(o.clock)}
	if g := newGeocoder(cfg, logger, metrics); g != nil {
		scraperOpts = append(scraperOpts, pipeline.WithGeocoder(g))
	}

	a.Scraper = pipeline.NewScraper(
		fetch.NewClient(o.transport),
		htmldoc.Parse,
		extract.DefaultChain(cfg.MaxRecords),
		sink,
		pipeline.Options{
			URL:         cfg.SourceURL,
			Headers:     Headers(cfg),
			Timeout:     cfg.FetchTimeout,
			MaxRecords:  cfg.MaxRecords,
			Concurrency: cfg.UpsertConcurrency,
		},
		logger,
		metrics,
		scraperOpts...,
	)
	a.Query = query.NewService(store)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Headers are sent with every fetch of the source page.
func Headers(cfg *config.Config) map[string]string {
	return map[string]string{
		"User-Agent":      cfg.UserAgent,
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "es-PE,es;q=0.9,en;q=0.5",
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; records are lost on exit")
		return memory.New(), func() error { return nil }, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck // migrate error wins
			return nil, nil, err
		}
		logger.Info("sqlite store ready", "path", cfg.SQLitePath)
		return s, s.Close, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool)
		if err := s.Migrate(ctx, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres store ready")
		return s, func() error { pool.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newGeocoder(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) domain.Geocoder {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
	metrics.GeocodeEnabled.Set(1)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
}

// Readiness reports ready only when every checker does.
type Readiness []sharedobs.ReadinessChecker

// CheckReadiness returns the first failing checker's error.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
