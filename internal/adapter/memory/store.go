// Package memory keeps earthquake records in process memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Store is a map keyed by record ID. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.EarthquakeRecord
}

func New() *Store {
	return &Store{records: make(map[string]domain.EarthquakeRecord)}
}

// Put inserts rec or replaces the record with the same ID.
func (s *Store) Put(_ context.Context, rec domain.EarthquakeRecord) error {
	rec.RawCells = slices.Clone(rec.RawCells)
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

// ScanAll returns a copy of every stored record.
func (s *Store) ScanAll(_ context.Context) ([]domain.EarthquakeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EarthquakeRecord, 0, len(s.records))
	for _, rec := range s.records {
		rec.RawCells = slices.Clone(rec.RawCells)
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CheckReadiness always succeeds.
func (s *Store) CheckReadiness(context.Context) error { return nil }
