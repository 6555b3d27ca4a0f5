package models

import "time"

// Provider identifies the source that produced a resolved location.
type Provider string

const (
	// ProviderManual marks a coordinate confirmed by a human correction.
	ProviderManual Provider = "manual"
	// ProviderNominatim marks a result from the primary free-text geocoder.
	ProviderNominatim Provider = "nominatim"
	// ProviderGoogle marks a result from the city-level fallback geocoder.
	ProviderGoogle Provider = "google"
	// ProviderViaCEP marks an address enriched through the postal-code registry.
	ProviderViaCEP Provider = "viacep"
)

// Coordinates represents a geographical point defined by its latitude and longitude.
type Coordinates struct {
	Latitude  float64 // Latitude of the geographical point.
	Longitude float64 // Longitude of the geographical point.
}

// ResolvedLocation is the coordinate found for a normalized address, annotated
// with how trustworthy it is and where it came from.
//
// Invariant: ManuallyEdited implies Provider == ProviderManual and Confidence == 1.0.
type ResolvedLocation struct {
	Latitude       float64   // Latitude of the resolved point.
	Longitude      float64   // Longitude of the resolved point.
	Confidence     float64   // Confidence score in [0, 1].
	Provider       Provider  // Which source produced the coordinate.
	ManuallyEdited bool      // True when a human confirmed this coordinate.
	Detail         string    // Optional provider metadata (display name, matched query).
	ResolvedAt     time.Time // When the resolution was obtained.
}

// Manual builds the ResolvedLocation for a human-confirmed coordinate.
func Manual(lat, lon float64, detail string) ResolvedLocation {
	return ResolvedLocation{
		Latitude:       lat,
		Longitude:      lon,
		Confidence:     1.0,
		Provider:       ProviderManual,
		ManuallyEdited: true,
		Detail:         detail,
		ResolvedAt:     time.Now(),
	}
}
