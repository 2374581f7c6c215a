// Package extract locates earthquake entries in a parsed page using an
// ordered chain of strategies.
package extract

import (
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// DefaultLimit caps the number of records taken from one page.
const DefaultLimit = 10

// Strategy finds records in a whole document.
type Strategy interface {
	Name() string
	Extract(doc domain.Node, now time.Time) Outcome
}

// Outcome is what one strategy found. Candidates counts the elements or lines
// the strategy considered plausible, whether or not they became records.
type Outcome struct {
	Records    []domain.EarthquakeRecord
	Candidates int
}

// Attempt records one strategy run within a chain.
type Attempt struct {
	Strategy   string
	Records    int
	Candidates int
}

// Result is the output of a chain run.
type Result struct {
	// Strategy is the name of the strategy that produced Records, or "" when
	// none did.
	Strategy string
	Records  []domain.EarthquakeRecord
	Attempts []Attempt
}
