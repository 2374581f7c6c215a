package domain

import (
	"strings"
	"time"
)

// MinRowCells is the number of non-empty cells a row needs before it is
// considered at all.
const MinRowCells = 3

// ExtractRow assembles a record from the cell texts of one table row. Parsers
// run over every cell because column order differs between page revisions.
// It reports false when the row has too few cells, no date/time, or no
// magnitude.
func ExtractRow(cells []string, now time.Time) (EarthquakeRecord, bool) {
	if countNonEmpty(cells) < MinRowCells {
		return EarthquakeRecord{}, false
	}

	raw, ok := ParseDateTime(cells)
	if !ok || raw == "" {
		return EarthquakeRecord{}, false
	}
	magnitude := ParseMagnitude(cells)
	if magnitude <= 0 {
		return EarthquakeRecord{}, false
	}

	var lat, lon float64
	for _, c := range cells {
		if lat, lon = ParseCoordinates(c); lat != 0 || lon != 0 {
			break
		}
	}

	rec := EarthquakeRecord{
		OccurredAtRaw: raw,
		OccurredAt:    NormalizeTimestamp(raw, now),
		Magnitude:     magnitude,
		DepthKm:       ParseDepth(cells),
		LocationText:  ChooseLocation(cells),
		Latitude:      lat,
		Longitude:     lon,
		ScrapedAt:     now,
		RawCells:      append([]string(nil), cells...),
	}
	rec.ID = RecordID(rec)
	return rec, true
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
