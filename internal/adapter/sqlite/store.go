// Package sqlite stores earthquake records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Store implements record persistence using modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at path and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS earthquakes (
	id                TEXT PRIMARY KEY,
	occurred_at_raw   TEXT NOT NULL,
	occurred_at       TEXT NOT NULL,
	magnitude         REAL NOT NULL,
	depth_km          REAL NOT NULL DEFAULT 0,
	location_text     TEXT NOT NULL,
	latitude          REAL NOT NULL DEFAULT 0,
	longitude         REAL NOT NULL DEFAULT 0,
	scraped_at        TEXT NOT NULL,
	raw_cells         TEXT NOT NULL DEFAULT '[]',
	place_name        TEXT NOT NULL DEFAULT '',
	formatted_address TEXT NOT NULL DEFAULT '',
	geo_source        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_earthquakes_occurred_at ON earthquakes(occurred_at);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Put inserts rec or overwrites the stored record with the same ID.
func (s *Store) Put(ctx context.Context, rec domain.EarthquakeRecord) error {
	cells, err := json.Marshal(nonNil(rec.RawCells))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal raw cells")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO earthquakes (
			id, occurred_at_raw, occurred_at, magnitude, depth_km, location_text,
			latitude, longitude, scraped_at, raw_cells, place_name, formatted_address, geo_source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			occurred_at_raw   = excluded.occurred_at_raw,
			occurred_at       = excluded.occurred_at,
			magnitude         = excluded.magnitude,
			depth_km          = excluded.depth_km,
			location_text     = excluded.location_text,
			latitude          = excluded.latitude,
			longitude         = excluded.longitude,
			scraped_at        = excluded.scraped_at,
			raw_cells         = excluded.raw_cells,
			place_name        = excluded.place_name,
			formatted_address = excluded.formatted_address,
			geo_source        = excluded.geo_source`,
		rec.ID, rec.OccurredAtRaw, formatTime(rec.OccurredAt), rec.Magnitude, rec.DepthKm, rec.LocationText,
		rec.Latitude, rec.Longitude, formatTime(rec.ScrapedAt), string(cells),
		rec.PlaceName, rec.FormattedAddress, rec.GeoSource,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert record %s", rec.ID)
	}
	return nil
}

// ScanAll returns every stored record.
func (s *Store) ScanAll(ctx context.Context) ([]domain.EarthquakeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at_raw, occurred_at, magnitude, depth_km, location_text,
		       latitude, longitude, scraped_at, raw_cells, place_name, formatted_address, geo_source
		FROM earthquakes`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan records")
	}
	defer rows.Close()

	var out []domain.EarthquakeRecord
	for rows.Next() {
		var (
			rec                   domain.EarthquakeRecord
			occurredAt, scrapedAt string
			cells                 string
		)
		if err := rows.Scan(
			&rec.ID, &rec.OccurredAtRaw, &occurredAt, &rec.Magnitude, &rec.DepthKm, &rec.LocationText,
			&rec.Latitude, &rec.Longitude, &scrapedAt, &cells,
			&rec.PlaceName, &rec.FormattedAddress, &rec.GeoSource,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		if rec.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: occurred_at of %s", rec.ID)
		}
		if rec.ScrapedAt, err = parseTime(scrapedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scraped_at of %s", rec.ID)
		}
		if err := json.Unmarshal([]byte(cells), &rec.RawCells); err != nil {
			return nil, eris.Wrapf(err, "sqlite: raw_cells of %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nonNil(cells []string) []string {
	if cells == nil {
		return []string{}
	}
	return cells
}
