package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/fetch"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/htmldoc"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/extract"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

const testURL = "https://example.test/sismos-reportados"

// --- mocks ---

type mockFetcher struct {
	body    []byte
	err     error
	calls   int
	headers map[string]string
	timeout time.Duration
}

func (m *mockFetcher) Fetch(_ context.Context, _ string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	m.calls++
	m.headers = headers
	m.timeout = timeout
	return m.body, m.err
}

type mockStore struct {
	mu     sync.Mutex
	puts   []domain.EarthquakeRecord
	failID func(domain.EarthquakeRecord) bool
}

func (m *mockStore) Put(_ context.Context, rec domain.EarthquakeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, rec)
	if m.failID != nil && m.failID(rec) {
		return errors.New("store unavailable")
	}
	return nil
}

type mockGeocoder struct{}

func (mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return domain.GeocodingResult{FormattedAddress: "Lima, Perú", PlaceName: "Lima"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScraper(f pipeline.Fetcher, store pipeline.RecordStore, opts pipeline.Options, options ...pipeline.ScraperOption) *pipeline.Scraper {
	if opts.URL == "" {
		opts.URL = testURL
	}
	options = append([]pipeline.ScraperOption{
		pipeline.WithClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC))),
	}, options...)
	return pipeline.NewScraper(f, htmldoc.Parse, extract.DefaultChain(opts.MaxRecords), store, opts,
		discardLogger(), observability.NewMetricsForTesting(), options...)
}

func page(rows ...string) []byte {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	b.WriteString("<tr><th>Fecha</th><th>Magnitud</th><th>Profundidad</th><th>Coordenadas</th></tr>")
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString("</table></body></html>")
	return []byte(b.String())
}

func row(cells ...string) string {
	return "<tr><td>" + strings.Join(cells, "</td><td>") + "</td></tr>"
}

func validRow(minute int) string {
	return row(fmt.Sprintf("15/03/2024 10:%02d:00", minute), "M 4.5", "60 km", "12.5°S, 76.8°W")
}

// --- tests ---

func TestScraper_Run_EndToEnd(t *testing.T) {
	f := &mockFetcher{body: page(
		row("15/03/2024 10:30:00", "M 4.5", "60 km", "12.5°S, 76.8°W"),
		row("16/03/2024 11:00:00", "", "70 km", "Arequipa"),
	)}
	store := &mockStore{}
	headers := map[string]string{"User-Agent": "quake-test"}

	res, err := newScraper(f, store, pipeline.Options{Headers: headers, Timeout: 30 * time.Second}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, "tabular", res.Strategy)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, headers, f.headers)
	assert.Equal(t, 30*time.Second, f.timeout)

	require.Len(t, store.puts, 1)
	rec := store.puts[0]
	assert.Equal(t, "15/03/2024 10:30:00", rec.OccurredAtRaw)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), rec.OccurredAt)
	assert.InDelta(t, 4.5, rec.Magnitude, 1e-9)
	assert.InDelta(t, 60, rec.DepthKm, 1e-9)
	assert.InDelta(t, -12.5, rec.Latitude, 1e-9)
	assert.InDelta(t, -76.8, rec.Longitude, 1e-9)
	assert.Equal(t, time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC), rec.ScrapedAt)
	assert.Equal(t, domain.RecordID(rec), rec.ID)
	assert.Empty(t, rec.GeoSource)
}

func TestScraper_Run_FetchTimeout(t *testing.T) {
	f := &mockFetcher{err: &fetch.Error{URL: testURL, Err: context.DeadlineExceeded}}
	store := &mockStore{}

	res, err := newScraper(f, store, pipeline.Options{}).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Saved)
	assert.Empty(t, store.puts)
}

func TestScraper_Run_PartialUpsertFailure(t *testing.T) {
	f := &mockFetcher{body: page(validRow(30), validRow(31))}
	store := &mockStore{failID: func(r domain.EarthquakeRecord) bool {
		return r.OccurredAtRaw == "15/03/2024 10:31:00"
	}}

	res, err := newScraper(f, store, pipeline.Options{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Saved)
	assert.Len(t, store.puts, 2)
}

func TestScraper_Run_CapsRecords(t *testing.T) {
	rows := make([]string, 0, 15)
	for i := range 15 {
		rows = append(rows, validRow(i))
	}
	f := &mockFetcher{body: page(rows...)}
	store := &mockStore{}

	res, err := newScraper(f, store, pipeline.Options{Concurrency: 4}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, extract.DefaultLimit, res.Processed)
	assert.Equal(t, extract.DefaultLimit, res.Saved)
	assert.Len(t, store.puts, extract.DefaultLimit)
}

func TestScraper_Run_NoRecords(t *testing.T) {
	f := &mockFetcher{body: []byte("<html><body><p>Sin información</p></body></html>")}
	store := &mockStore{}

	res, err := newScraper(f, store, pipeline.Options{}).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Saved)
	assert.Empty(t, res.Strategy)
}

func TestScraper_Run_ParseError(t *testing.T) {
	f := &mockFetcher{body: []byte("<html></html>")}
	failing := func([]byte) (domain.Node, error) { return nil, errors.New("malformed") }
	s := pipeline.NewScraper(f, failing, extract.DefaultChain(0), &mockStore{}, pipeline.Options{URL: testURL},
		discardLogger(), observability.NewMetricsForTesting())

	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestScraper_Run_Geocoding(t *testing.T) {
	f := &mockFetcher{body: page(validRow(30))}
	store := &mockStore{}

	res, err := newScraper(f, store, pipeline.Options{}, pipeline.WithGeocoder(mockGeocoder{})).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	require.Len(t, store.puts, 1)
	rec := store.puts[0]
	assert.Equal(t, "reverse", rec.GeoSource)
	assert.Equal(t, "Lima, Perú", rec.FormattedAddress)
	assert.Equal(t, domain.RecordID(rec), rec.ID)
}

func TestScraper_Run_IdempotentIDs(t *testing.T) {
	f := &mockFetcher{body: page(validRow(30))}
	store := &mockStore{}
	s := newScraper(f, store, pipeline.Options{})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, store.puts, 2)
	assert.Equal(t, store.puts[0].ID, store.puts[1].ID)
}
