package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pmgagenda/geocoder/internal/ratelimit"
)

// NominatimProvider implements the primary free-text lookup using
// OpenStreetMap's Nominatim API, restricted to Brazil. It returns the top
// match's coordinates plus the metadata the confidence scorer consumes; it
// does not score results itself.
type NominatimProvider struct {
	client  HTTPClient      // HTTP client for making requests
	baseURL string          // Base URL for the Nominatim API
	gate    *ratelimit.Gate // Shared outbound-call gate
	log     *slog.Logger    // Logger for logging operations
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// Match is the top Nominatim result for one query.
type Match struct {
	Latitude    float64
	Longitude   float64
	Type        string  // Match specificity: "house", "street", "neighbourhood", "city", ...
	Importance  float64 // Nominatim's own ranking signal, roughly in [0, 1].
	DisplayName string
	Address     MatchAddress
}

// MatchAddress holds the structured components of a matched address.
type MatchAddress struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	City          string `json:"city"`
	Town          string `json:"town"`
}

// Common errors for the Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// nominatimResponse represents one entry of the JSON response.
type nominatimResponse struct {
	Lat         string       `json:"lat"` // Latitude as string
	Lon         string       `json:"lon"` // Longitude as string
	Type        string       `json:"type"`
	Importance  float64      `json:"importance"`
	DisplayName string       `json:"display_name"`
	Address     MatchAddress `json:"address"`
}

// NewNominatimProvider creates a new Nominatim provider over the public
// endpoint.
func NewNominatimProvider(gate *ratelimit.Gate, log *slog.Logger) *NominatimProvider {
	const timeout = 5
	return &NominatimProvider{
		client: &http.Client{
			Timeout: timeout * time.Second,
		},
		baseURL: "https://nominatim.openstreetmap.org/search",
		gate:    gate,
		log:     log,
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: "PMG-Agenda-Geocoder/1.0 (https://github.com/pmgagenda/geocoder)",
	}
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom
// HTTP client. Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, gate *ratelimit.Gate, log *slog.Logger) *NominatimProvider {
	np := NewNominatimProvider(gate, log)
	np.client = client
	return np
}

// Search geocodes one free-text address variation and returns the top match.
// An empty result set yields ErrNominatimEmptyResponse.
func (np *NominatimProvider) Search(ctx context.Context, query string) (*Match, error) {
	if err := np.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	np.log.DebugContext(ctx, "Geocoding using Nominatim", "query", query)

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")               // Only need the top result
	q.Set("countrycodes", "br")       // Restrict to Brazil
	q.Set("addressdetails", "1")      // Structured components feed the scorer
	q.Set("accept-language", "pt-BR") // Prefer Brazilian Portuguese results
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	top := results[0]

	var lat, lon float64
	if _, err = fmt.Sscanf(top.Lat, "%f", &lat); err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, top.Lat)
	}
	if _, err = fmt.Sscanf(top.Lon, "%f", &lon); err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, top.Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result",
		"lat", lat, "lon", lon, "type", top.Type, "importance", top.Importance)

	return &Match{
		Latitude:    lat,
		Longitude:   lon,
		Type:        top.Type,
		Importance:  top.Importance,
		DisplayName: top.DisplayName,
		Address:     top.Address,
	}, nil
}
