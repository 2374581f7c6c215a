// Package postgres stores earthquake records in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Store implements record persistence on a pgx pool.
type Store struct {
	db DB
}

// New creates a Store on db.
func New(db DB) *Store {
	return &Store{db: db}
}

const upsertSQL = `
INSERT INTO earthquakes (
	id, occurred_at_raw, occurred_at, magnitude, depth_km, location_text,
	latitude, longitude, scraped_at, raw_cells, place_name, formatted_address, geo_source
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	occurred_at_raw   = EXCLUDED.occurred_at_raw,
	occurred_at       = EXCLUDED.occurred_at,
	magnitude         = EXCLUDED.magnitude,
	depth_km          = EXCLUDED.depth_km,
	location_text     = EXCLUDED.location_text,
	latitude          = EXCLUDED.latitude,
	longitude         = EXCLUDED.longitude,
	scraped_at        = EXCLUDED.scraped_at,
	raw_cells         = EXCLUDED.raw_cells,
	place_name        = EXCLUDED.place_name,
	formatted_address = EXCLUDED.formatted_address,
	geo_source        = EXCLUDED.geo_source`

const scanSQL = `
SELECT id, occurred_at_raw, occurred_at, magnitude, depth_km, location_text,
       latitude, longitude, scraped_at, raw_cells, place_name, formatted_address, geo_source
FROM earthquakes`

// Put inserts rec or overwrites the stored record with the same ID.
func (s *Store) Put(ctx context.Context, rec domain.EarthquakeRecord) error {
	cells := rec.RawCells
	if cells == nil {
		cells = []string{}
	}
	cellsJSON, err := json.Marshal(cells)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal raw cells")
	}

	_, err = s.db.Exec(ctx, upsertSQL,
		rec.ID, rec.OccurredAtRaw, rec.OccurredAt.UTC(), rec.Magnitude, rec.DepthKm, rec.LocationText,
		rec.Latitude, rec.Longitude, rec.ScrapedAt.UTC(), string(cellsJSON),
		rec.PlaceName, rec.FormattedAddress, rec.GeoSource,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert record %s", rec.ID)
	}
	return nil
}

// ScanAll returns every stored record.
func (s *Store) ScanAll(ctx context.Context) ([]domain.EarthquakeRecord, error) {
	rows, err := s.db.Query(ctx, scanSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan records")
	}
	defer rows.Close()

	var out []domain.EarthquakeRecord
	for rows.Next() {
		var (
			rec   domain.EarthquakeRecord
			cells []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.OccurredAtRaw, &rec.OccurredAt, &rec.Magnitude, &rec.DepthKm, &rec.LocationText,
			&rec.Latitude, &rec.Longitude, &rec.ScrapedAt, &cells,
			&rec.PlaceName, &rec.FormattedAddress, &rec.GeoSource,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		if err := json.Unmarshal(cells, &rec.RawCells); err != nil {
			return nil, eris.Wrapf(err, "postgres: raw_cells of %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return eris.Wrap(s.db.Ping(ctx), "postgres: ping")
}
