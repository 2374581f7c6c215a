package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

const page = `<html><body><table>
<tr><th>Fecha</th><th>Magnitud</th><th>Profundidad</th><th>Coordenadas</th><th>Referencia</th></tr>
<tr><td>15/03/2024 10:30:00</td><td>M 4.5</td><td>60 km</td><td>12.5°S 76.8°O</td><td>45 km al SO de Lima</td></tr>
</table></body></html>`

type headerRecorder struct {
	mu      sync.Mutex
	headers http.Header
}

func (h *headerRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.headers = r.Header.Clone()
		h.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}
}

func testConfig(url, driver string) *config.Config {
	return &config.Config{
		SourceURL:         url,
		UserAgent:         "quake-test/1.0",
		FetchTimeout:      5 * time.Second,
		MaxRecords:        10,
		UpsertConcurrency: 2,
		StoreDriver:       driver,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryStoreEndToEnd(t *testing.T) {
	rec := &headerRecorder{}
	upstream := httptest.NewServer(rec.handler())
	defer upstream.Close()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	a, err := New(context.Background(), testConfig(upstream.URL, config.DriverMemory),
		discardLogger(), observability.NewMetricsForTesting(), WithClock(clockwork.NewFakeClockAt(now)))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Scraper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, "tabular", res.Strategy)

	rec.mu.Lock()
	assert.Equal(t, "quake-test/1.0", rec.headers.Get("User-Agent"))
	assert.Contains(t, rec.headers.Get("Accept-Language"), "es")
	rec.mu.Unlock()

	records, err := a.Query.Latest(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4.5, records[0].Magnitude)
	assert.Equal(t, 60.0, records[0].DepthKm)
	assert.Equal(t, "45 km al SO de Lima", records[0].LocationText)
	assert.InDelta(t, -12.5, records[0].Latitude, 1e-9)
	assert.InDelta(t, -76.8, records[0].Longitude, 1e-9)
	assert.Equal(t, now, records[0].ScrapedAt)

	require.NoError(t, a.Store.CheckReadiness(context.Background()))
}

func TestNew_SQLiteStoreIsIdempotent(t *testing.T) {
	rec := &headerRecorder{}
	upstream := httptest.NewServer(rec.handler())
	defer upstream.Close()

	cfg := testConfig(upstream.URL, config.DriverSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "quakes.db")

	a, err := New(context.Background(), cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	defer a.Close()

	for range 2 {
		_, err := a.Scraper.Run(context.Background())
		require.NoError(t, err)
	}

	records, err := a.Query.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	require.NoError(t, a.Store.CheckReadiness(context.Background()))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), testConfig("http://127.0.0.1:1", "mongo"),
		discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig("http://127.0.0.1:1", config.DriverMemory),
		discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

type staticReadiness struct{ err error }

func (s staticReadiness) CheckReadiness(context.Context) error { return s.err }

func TestReadiness(t *testing.T) {
	assert.NoError(t, Readiness{}.CheckReadiness(context.Background()))
	assert.NoError(t, Readiness{staticReadiness{}, staticReadiness{}}.CheckReadiness(context.Background()))

	notReady := errors.New("store unreachable")
	err := Readiness{staticReadiness{}, staticReadiness{err: notReady}}.CheckReadiness(context.Background())
	assert.ErrorIs(t, err, notReady)
}
