package domain

import "time"

// EarthquakeRecord is one earthquake entry extracted from the source page.
type EarthquakeRecord struct {
	ID            string    `json:"id"`
	OccurredAtRaw string    `json:"occurred_at_raw"`
	OccurredAt    time.Time `json:"occurred_at"`
	Magnitude     float64   `json:"magnitude"`
	DepthKm       float64   `json:"depth_km"`
	LocationText  string    `json:"location_text"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	ScrapedAt     time.Time `json:"scraped_at"`
	RawCells      []string  `json:"raw_cells"`

	// Geocoding enrichment fields. Never part of the ID.
	PlaceName        string `json:"place_name,omitempty"`
	FormattedAddress string `json:"formatted_address,omitempty"`
	GeoSource        string `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// HasCoordinates reports whether either coordinate was found on the page.
func (r EarthquakeRecord) HasCoordinates() bool {
	return r.Latitude != 0 || r.Longitude != 0
}

// Node is a read-only view of one element of a parsed page. The root of a
// document is a Node too.
type Node interface {
	// FindAll returns every descendant element with the given tag name, in
	// document order.
	FindAll(tag string) []Node
	// Cells returns the direct td/th children of a table row.
	Cells() []Node
	// Text returns the concatenated text content, unnormalized.
	Text() string
	// Attr returns the attribute value, or "" when absent.
	Attr(name string) string
}
