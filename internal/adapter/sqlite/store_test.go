package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRecord() domain.EarthquakeRecord {
	rec := domain.EarthquakeRecord{
		OccurredAtRaw: "15/03/2024 10:30:00",
		OccurredAt:    time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Magnitude:     4.5,
		DepthKm:       60,
		LocationText:  "45 km al SO de Lima",
		Latitude:      -12.5,
		Longitude:     -76.8,
		ScrapedAt:     time.Date(2024, 4, 26, 15, 0, 0, 123000000, time.UTC),
		RawCells:      []string{"15/03/2024 10:30:00", "M 4.5", "60 km", "12.5°S, 76.8°W"},
	}
	rec.ID = domain.RecordID(rec)
	return rec
}

func TestStore_PutAndScan(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()

	require.NoError(t, st.Put(ctx, rec))

	got, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	if diff := cmp.Diff(rec, got[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PutOverwritesSameID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	require.NoError(t, st.Put(ctx, rec))

	rec.ScrapedAt = rec.ScrapedAt.Add(time.Hour)
	rec.PlaceName = "Lima"
	rec.FormattedAddress = "Lima, Perú"
	rec.GeoSource = "reverse"
	require.NoError(t, st.Put(ctx, rec))

	got, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ScrapedAt, got[0].ScrapedAt)
	assert.Equal(t, "reverse", got[0].GeoSource)
	assert.Equal(t, "Lima, Perú", got[0].FormattedAddress)
}

func TestStore_NilRawCells(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	rec.RawCells = nil

	require.NoError(t, st.Put(ctx, rec))

	got, err := st.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].RawCells)
}

func TestStore_ScanAllEmpty(t *testing.T) {
	st := newTestStore(t)

	got, err := st.ScanAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_CheckReadiness(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CheckReadiness(context.Background()))

	require.NoError(t, st.Close())
	assert.Error(t, st.CheckReadiness(context.Background()))
}

func TestStore_MigrateIdempotent(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
