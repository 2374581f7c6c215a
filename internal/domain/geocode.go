package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding adds place details to a record that has coordinates.
// If geocoder is nil the record is returned untouched; if geocoding fails the
// record keeps its scraped fields and GeoSource is set to "failed". The ID and
// every field it depends on are never modified.
func EnrichWithGeocoding(ctx context.Context, rec EarthquakeRecord, geocoder Geocoder, logger *slog.Logger) EarthquakeRecord {
	if geocoder == nil {
		return rec
	}

	if !rec.HasCoordinates() {
		rec.GeoSource = "original"
		return rec
	}

	result, err := geocoder.ReverseGeocode(ctx, rec.Latitude, rec.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"record_id", rec.ID,
			"lat", rec.Latitude,
			"lon", rec.Longitude,
			"error", err,
		)
		rec.GeoSource = "failed"
		return rec
	}
	if result.FormattedAddress == "" {
		rec.GeoSource = "original"
		return rec
	}

	rec.FormattedAddress = result.FormattedAddress
	rec.PlaceName = result.PlaceName
	rec.GeoSource = "reverse"
	return rec
}
