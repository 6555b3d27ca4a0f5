package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/pmgagenda/geocoder/internal/ratelimit"
)

// ViaCEPBaseURL -- ViaCEP API base URL.
const ViaCEPBaseURL = "https://viacep.com.br/ws"

// ViaCEPProvider resolves an 8-digit CEP into a structured partial address.
// It returns no coordinates; its output is only used to build a richer query
// for the primary geocoder.
type ViaCEPProvider struct {
	client  HTTPClient      // HTTP client for making requests
	baseURL string          // Base URL for the ViaCEP API
	gate    *ratelimit.Gate // Shared outbound-call gate
	log     *slog.Logger    // Logger for logging operations
}

// PostalAddress is the partial address a CEP maps to.
type PostalAddress struct {
	Street       string
	Neighborhood string
	City         string
	Region       string
}

// Common errors for the ViaCEP provider.
var (
	ErrViaCEPNotFound   = errors.New("viacep has no address for this CEP")
	ErrViaCEPInvalidCEP = errors.New("viacep provider got an invalid CEP")
)

var cepRe = regexp.MustCompile(`^\d{8}$`)

// viaCEPResponse represents the JSON response from the ViaCEP API.
type viaCEPResponse struct {
	Logradouro string `json:"logradouro"` // Street
	Bairro     string `json:"bairro"`     // Neighborhood
	Localidade string `json:"localidade"` // City
	UF         string `json:"uf"`         // State code
	Erro       bool   `json:"erro"`       // Explicit "not found" marker
}

// NewViaCEPProvider creates a new ViaCEP postal-registry provider.
func NewViaCEPProvider(gate *ratelimit.Gate, log *slog.Logger) *ViaCEPProvider {
	const timeout = 5
	return &ViaCEPProvider{
		client: &http.Client{
			Timeout: timeout * time.Second,
		},
		baseURL: ViaCEPBaseURL,
		gate:    gate,
		log:     log,
	}
}

// NewViaCEPProviderWithClient creates a ViaCEP provider with a custom HTTP
// client. Useful for testing with mocked HTTP clients.
func NewViaCEPProviderWithClient(client HTTPClient, gate *ratelimit.Gate, log *slog.Logger) *ViaCEPProvider {
	return &ViaCEPProvider{
		client:  client,
		baseURL: ViaCEPBaseURL,
		gate:    gate,
		log:     log,
	}
}

// Lookup queries the registry for an 8-digit CEP. A CEP the registry does
// not know yields ErrViaCEPNotFound.
func (vp *ViaCEPProvider) Lookup(ctx context.Context, cep string) (*PostalAddress, error) {
	if !cepRe.MatchString(cep) {
		return nil, fmt.Errorf("%w: %q", ErrViaCEPInvalidCEP, cep)
	}

	if err := vp.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	vp.log.DebugContext(ctx, "Looking up CEP in ViaCEP", "cep", cep)

	reqURL := fmt.Sprintf("%s/%s/json/", vp.baseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := vp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CEP lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		vp.log.ErrorContext(ctx, "ViaCEP API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("viacep API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result viaCEPResponse
	if err = json.Unmarshal(body, &result); err != nil {
		vp.log.ErrorContext(ctx, "Failed to parse ViaCEP response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode viacep response: %w", err)
	}

	if result.Erro {
		return nil, fmt.Errorf("%w: %s", ErrViaCEPNotFound, cep)
	}

	vp.log.DebugContext(ctx, "ViaCEP found address",
		"cep", cep, "street", result.Logradouro, "city", result.Localidade)

	return &PostalAddress{
		Street:       result.Logradouro,
		Neighborhood: result.Bairro,
		City:         result.Localidade,
		Region:       result.UF,
	}, nil
}
