package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ComputeID hashes the raw date/time text together with the given
// distinguishing fields into a 32-character hex identifier. The same inputs
// always produce the same ID on every platform.
func ComputeID(occurredAtRaw string, fields ...string) string {
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, occurredAtRaw)
	parts = append(parts, fields...)
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

// RecordID derives the deduplication ID for a record. Coordinates identify
// the event when present; otherwise magnitude and location text do. Scrape
// time and enrichment fields never contribute.
func RecordID(r EarthquakeRecord) string {
	if r.HasCoordinates() {
		return ComputeID(r.OccurredAtRaw, formatFloat(r.Latitude), formatFloat(r.Longitude))
	}
	return ComputeID(r.OccurredAtRaw, formatFloat(r.Magnitude), r.LocationText)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
