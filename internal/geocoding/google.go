package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/ratelimit"
	"googlemaps.github.io/maps"
)

// CityConfidence is the fixed confidence of a city-level fallback result.
// It is intentionally coarser than any real address match so that a later
// run with a working primary geocoder can still improve the cache.
const CityConfidence = 0.7

// GoogleProvider is the last-resort, city-only geocoder. It is queried with
// a place name plus country filter and returns a single best-match
// coordinate pair.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	gate   *ratelimit.Gate // Shared outbound-call gate
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of the Google Maps client used here.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Common errors for the Google provider.
var (
	ErrGoogleEmptyResponse = errors.New("got empty response from Google Maps API")
	ErrGoogleEmptyCity     = errors.New("google provider got an empty city")
)

// NewGoogleProvider initializes the city-level fallback over an existing
// Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, gate *ratelimit.Gate, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, gate: gate, log: log}
}

// GeocodeCity resolves a city name (optionally qualified by a state code) to
// its best-match coordinates, restricted to Brazil.
func (gp *GoogleProvider) GeocodeCity(ctx context.Context, city, region string) (*models.Coordinates, error) {
	if city == "" {
		return nil, ErrGoogleEmptyCity
	}

	if err := gp.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	address := city
	if region != "" {
		address = fmt.Sprintf("%s, %s", city, region)
	}
	address = fmt.Sprintf("%s, Brasil", address)

	gp.log.DebugContext(ctx, "Geocoding city using Google Maps", "address", address)

	req := maps.GeocodingRequest{
		Address: address,
		Region:  "br",
		Components: map[maps.Component]string{
			maps.ComponentCountry: "BR",
		},
	}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode city: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrGoogleEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	gp.log.DebugContext(ctx, "Google found result", "lat", coords.Lat, "lon", coords.Lng)

	return &models.Coordinates{Latitude: coords.Lat, Longitude: coords.Lng}, nil
}
