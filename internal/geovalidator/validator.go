// Package geovalidator sanity-checks provider coordinates against fixed
// bounding boxes before they are accepted.
package geovalidator

import (
	"context"
	"log/slog"

	"github.com/pmgagenda/geocoder/internal/models"
)

// Box is a min/max latitude/longitude rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Contains reports whether the coordinate falls inside the box.
func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// brazilBounds is the national bounding box. Results outside it are rejected
// outright.
var brazilBounds = Box{MinLat: -33.75, MaxLat: 5.27, MinLon: -73.99, MaxLon: -28.85}

// regionBounds covers the major states. A coordinate outside the client's
// declared state is logged but still accepted; only the country check
// rejects.
var regionBounds = map[string]Box{
	"SP": {MinLat: -25.36, MaxLat: -19.75, MinLon: -53.15, MaxLon: -44.15},
	"RJ": {MinLat: -23.40, MaxLat: -20.75, MinLon: -44.95, MaxLon: -40.95},
	"MG": {MinLat: -22.95, MaxLat: -14.20, MinLon: -51.10, MaxLon: -39.85},
	"PR": {MinLat: -26.75, MaxLat: -22.50, MinLon: -54.65, MaxLon: -48.00},
	"RS": {MinLat: -33.80, MaxLat: -27.05, MinLon: -57.70, MaxLon: -49.65},
	"SC": {MinLat: -29.40, MaxLat: -25.95, MinLon: -53.90, MaxLon: -48.30},
	"BA": {MinLat: -18.40, MaxLat: -8.50, MinLon: -46.70, MaxLon: -37.30},
	"PE": {MinLat: -9.50, MaxLat: -3.80, MinLon: -41.40, MaxLon: -32.35},
	"CE": {MinLat: -7.90, MaxLat: -2.75, MinLon: -41.45, MaxLon: -37.20},
	"GO": {MinLat: -19.50, MaxLat: -12.35, MinLon: -53.30, MaxLon: -45.90},
	"DF": {MinLat: -16.10, MaxLat: -15.45, MinLon: -48.30, MaxLon: -47.30},
	"MS": {MinLat: -24.10, MaxLat: -17.15, MinLon: -58.20, MaxLon: -50.90},
	"ES": {MinLat: -21.35, MaxLat: -17.85, MinLon: -41.90, MaxLon: -39.60},
}

// Validator checks resolved coordinates against the country and region boxes.
type Validator struct {
	log *slog.Logger
}

// NewValidator creates a Validator that logs region mismatches.
func NewValidator(log *slog.Logger) *Validator {
	return &Validator{log: log}
}

// Check validates a coordinate for a client's declared region code. The
// returned ok is false only when the coordinate is outside the national
// bounds; regionMismatch flags an accepted coordinate that falls outside the
// declared state's box.
func (v *Validator) Check(ctx context.Context, coords models.Coordinates, region string) (ok, regionMismatch bool) {
	if !brazilBounds.Contains(coords.Latitude, coords.Longitude) {
		v.log.DebugContext(ctx, "Coordinate outside country bounds, rejecting",
			"lat", coords.Latitude, "lon", coords.Longitude)
		return false, false
	}

	box, known := regionBounds[region]
	if known && !box.Contains(coords.Latitude, coords.Longitude) {
		v.log.WarnContext(ctx, "Coordinate outside declared region, accepting anyway",
			"region", region, "lat", coords.Latitude, "lon", coords.Longitude)
		return true, true
	}

	return true, false
}
