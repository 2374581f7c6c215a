// Package domain models earthquake reports scraped from the Instituto Geofísico
// del Perú (IGP) "sismos reportados" page.
//
// # Data Source
//
// The IGP publishes recent seismic events as an HTML page with no stable
// schema. Most revisions render a table whose first row is a header and whose
// remaining rows hold one event each, but column order, cell wording and
// number formats have all changed over time. Parsing is therefore tolerant:
// every field parser scans all cells of a row rather than a fixed column.
//
// # Source Conventions
//
// Date and time:
//
//	"15/03/2024 10:30:00"   day/month/year with seconds (most common)
//	"2024-03-15 10:30:00"   ISO order, sometimes with a "T" separator
//	"15-03-2024 10:30:00"   hyphenated day-first order
//	minute-precision variants of all three ("15/03/2024 10:30")
//
// Times are parsed as UTC wall-clock values; the page does not state a zone.
//
// Magnitude:
//
//	"4.5 M", "M 4.5", "Mw 4.5", "Magnitud: 4.5", or a bare "4.5" cell.
//	0 means "not found" and rejects the row.
//
// Depth:
//
//	"60 km", "Profundidad 60", "60 kilómetros". 0 means "not found".
//
// Coordinates:
//
//	"12.5°S, 76.8°W", "-12.05 -77.03", "12.5 S 76.8 O" (O = oeste).
//	South latitudes and west longitudes become negative. Values without a
//	hemisphere letter keep the sign they were written with.
//
// # ID Generation
//
// Record IDs are truncated SHA-256 hashes of the raw date/time text plus either
// the coordinates or, when the page gave none, the magnitude and location text.
// The same event scraped on different runs maps to the same ID, so storage
// is a plain last-write-wins upsert. See [RecordID].
package domain
