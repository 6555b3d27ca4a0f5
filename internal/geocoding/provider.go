// Package geocoding holds the adapters for the three external lookup
// services and the confidence scorer applied to primary-geocoder matches.
//
// Every adapter fails closed: transport errors, malformed responses and
// empty result sets surface as sentinel errors the resolver downgrades,
// never as a result with bogus coordinates. Each adapter acquires the shared
// rate gate before dispatching its request.
package geocoding

import "net/http"

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
