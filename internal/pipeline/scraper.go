package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/extract"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// Fetcher retrieves the raw bytes of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error)
}

// RecordStore upserts records keyed by ID.
type RecordStore interface {
	Put(ctx context.Context, rec domain.EarthquakeRecord) error
}

// Extractor turns a parsed document into records.
type Extractor interface {
	Extract(doc domain.Node, now time.Time) extract.Result
}

// DocumentParser builds a document tree from fetched bytes.
type DocumentParser func(body []byte) (domain.Node, error)

// Options configure a Scraper.
type Options struct {
	URL         string
	Headers     map[string]string
	Timeout     time.Duration
	MaxRecords  int
	Concurrency int
}

// Result summarizes one scrape run. Processed counts extracted records and
// Saved the ones the store accepted; they differ when upserts fail.
type Result struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Saved     int    `json:"saved"`
	Strategy  string `json:"strategy,omitempty"`
}

// Scraper fetches the source page, extracts records and stores them.
type Scraper struct {
	fetcher   Fetcher
	parse     DocumentParser
	extractor Extractor
	store     RecordStore
	geocoder  domain.Geocoder
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
}

// ScraperOption customizes a Scraper.
type ScraperOption func(*Scraper)

// WithGeocoder enables reverse geocoding of extracted records.
func WithGeocoder(g domain.Geocoder) ScraperOption {
	return func(s *Scraper) { s.geocoder = g }
}

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) ScraperOption {
	return func(s *Scraper) { s.clock = c }
}

// NewScraper creates a Scraper. MaxRecords <= 0 uses extract.DefaultLimit and
// Concurrency <= 0 stores records one at a time.
func NewScraper(f Fetcher, parse DocumentParser, e Extractor, store RecordStore, opts Options, logger *slog.Logger, metrics *observability.Metrics, options ...ScraperOption) *Scraper {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = extract.DefaultLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	s := &Scraper{
		fetcher:   f,
		parse:     parse,
		extractor: e,
		store:     store,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Run performs one fetch-extract-store cycle. A failed fetch is logged and
// reported as an empty result, not an error. Individual upsert failures are
// logged and skipped. Only a page that cannot be parsed returns an error.
func (s *Scraper) Run(ctx context.Context) (Result, error) {
	start := s.clock.Now()
	res := Result{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", res.RunID)
	logger.Info("scrape started", "url", s.opts.URL)

	body, err := s.fetcher.Fetch(ctx, s.opts.URL, s.opts.Headers, s.opts.Timeout)
	s.metrics.FetchDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		logger.Error("fetch failed", "url", s.opts.URL, "error", err)
		s.metrics.ScrapeRuns.WithLabelValues("fetch_error").Inc()
		return res, nil
	}
	logger.Info("fetch complete", "bytes", len(body))

	doc, err := s.parse(body)
	if err != nil {
		s.metrics.ScrapeRuns.WithLabelValues("parse_error").Inc()
		return res, fmt.Errorf("parse page: %w", err)
	}

	now := s.clock.Now().UTC()
	extracted := s.extractor.Extract(doc, now)
	records := extracted.Records
	if len(records) > s.opts.MaxRecords {
		records = records[:s.opts.MaxRecords]
	}
	res.Processed = len(records)
	res.Strategy = extracted.Strategy

	for _, a := range extracted.Attempts {
		logger.Debug("strategy attempted", "strategy", a.Strategy, "records", a.Records, "candidates", a.Candidates)
	}
	if extracted.Strategy != "" {
		logger.Info("strategy selected", "strategy", extracted.Strategy, "records", len(records))
		s.metrics.StrategySelected.WithLabelValues(extracted.Strategy).Inc()
	} else {
		logger.Warn("no strategy produced records", "attempts", len(extracted.Attempts))
	}
	s.metrics.RecordsExtracted.Add(float64(len(records)))

	res.Saved = s.storeAll(context.WithoutCancel(ctx), logger, records)

	s.metrics.RecordsSaved.Add(float64(res.Saved))
	s.metrics.ScrapeRuns.WithLabelValues("success").Inc()
	s.metrics.LastSuccess.Set(float64(s.clock.Now().Unix()))
	s.metrics.ScrapeDuration.Observe(s.clock.Since(start).Seconds())
	logger.Info("scrape complete",
		"processed", res.Processed,
		"saved", res.Saved,
		"duration", s.clock.Since(start),
	)
	return res, nil
}

// storeAll enriches and upserts records, returning how many were saved.
// Upserts target distinct keys so they may run concurrently.
func (s *Scraper) storeAll(ctx context.Context, logger *slog.Logger, records []domain.EarthquakeRecord) int {
	var saved atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for _, rec := range records {
		g.Go(func() error {
			rec = domain.EnrichWithGeocoding(ctx, rec, s.geocoder, logger)
			if err := s.store.Put(ctx, rec); err != nil {
				logger.Warn("upsert failed, skipping record",
					"record_id", rec.ID,
					"occurred_at_raw", rec.OccurredAtRaw,
					"error", err,
				)
				s.metrics.UpsertErrors.Inc()
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(saved.Load())
}
