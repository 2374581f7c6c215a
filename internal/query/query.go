// Package query serves stored records most recent first.
package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// DefaultLimit applies when the caller gives no usable limit.
const DefaultLimit = 10

// Scanner returns every stored record in no particular order.
type Scanner interface {
	ScanAll(ctx context.Context) ([]domain.EarthquakeRecord, error)
}

// Service answers read requests against a store.
type Service struct {
	store Scanner
}

// NewService creates a Service reading from store.
func NewService(store Scanner) *Service {
	return &Service{store: store}
}

// Latest returns at most limit records sorted by occurrence time, newest
// first. Ties on the parsed time fall back to the raw text. A negative limit
// uses DefaultLimit.
func (s *Service) Latest(ctx context.Context, limit int) ([]domain.EarthquakeRecord, error) {
	if limit < 0 {
		limit = DefaultLimit
	}
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	slices.SortStableFunc(records, func(a, b domain.EarthquakeRecord) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(b.OccurredAtRaw, a.OccurredAtRaw)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ParseLimit reads a limit query value. Anything but a run of ASCII digits
// yields DefaultLimit; "0" is a valid limit.
func ParseLimit(raw string) int {
	if raw == "" {
		return DefaultLimit
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return DefaultLimit
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLimit
	}
	return n
}
