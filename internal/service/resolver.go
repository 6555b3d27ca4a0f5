// Package service contains the cascading resolver and the batch
// orchestrator that drives it over a client list.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pmgagenda/geocoder/internal/geocoding"
	"github.com/pmgagenda/geocoder/internal/geovalidator"
	"github.com/pmgagenda/geocoder/internal/metrics"
	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/normalizer"
)

// Status classifies the outcome of resolving one client.
type Status string

const (
	// StatusResolved means a coordinate was found and may be placed on the map.
	StatusResolved Status = "resolved"
	// StatusSkipped means the address could not even be normalized; no
	// lookup was attempted.
	StatusSkipped Status = "skipped"
	// StatusUnresolved means every fallback was exhausted without a valid
	// coordinate.
	StatusUnresolved Status = "unresolved"
)

// Outcome is the result of resolving one client.
type Outcome struct {
	Status   Status
	Location *models.ResolvedLocation // Set only when Status is StatusResolved.
}

// PostalRegistry resolves an 8-digit CEP to a partial structured address.
type PostalRegistry interface {
	Lookup(ctx context.Context, cep string) (*geocoding.PostalAddress, error)
}

// AddressSearcher is the primary free-text geocoder.
type AddressSearcher interface {
	Search(ctx context.Context, query string) (*geocoding.Match, error)
}

// CityGeocoder is the coarse, city-only fallback geocoder.
type CityGeocoder interface {
	GeocodeCity(ctx context.Context, city, region string) (*models.Coordinates, error)
}

// LocationStore is the subset of the store the resolver reads and writes.
type LocationStore interface {
	Override(key string) (models.ResolvedLocation, bool)
	Cached(key string) (models.ResolvedLocation, bool)
	AdmitCache(ctx context.Context, key string, loc models.ResolvedLocation) (bool, error)
}

// Resolver runs the fixed fallback sequence for one client: manual override,
// high-confidence cache, CEP-assisted lookup, direct address variations,
// city-level fallback. The first success wins.
type Resolver struct {
	log       *slog.Logger
	store     LocationStore
	registry  PostalRegistry
	primary   AddressSearcher
	secondary CityGeocoder
	validator *geovalidator.Validator
	metrics   *metrics.Metrics
	timeout   time.Duration // Hard per-provider-call timeout.
}

// NewResolver wires the resolver's collaborators. timeout bounds each
// individual provider call; an expired call is treated as an empty result
// and the cascade proceeds.
func NewResolver(
	log *slog.Logger,
	store LocationStore,
	registry PostalRegistry,
	primary AddressSearcher,
	secondary CityGeocoder,
	validator *geovalidator.Validator,
	appMetrics *metrics.Metrics,
	timeout time.Duration,
) *Resolver {
	return &Resolver{
		log:       log,
		store:     store,
		registry:  registry,
		primary:   primary,
		secondary: secondary,
		validator: validator,
		metrics:   appMetrics,
		timeout:   timeout,
	}
}

// Resolve locates one client. It never returns an error: every provider
// failure is downgraded and the next fallback fires, so a single client can
// at worst end up unresolved.
func (r *Resolver) Resolve(ctx context.Context, client models.Client) Outcome {
	key, err := normalizer.Key(client.Address)
	if err != nil {
		r.log.InfoContext(ctx, "Client skipped, address cannot be normalized",
			"client", client.ID, "error", err)
		return Outcome{Status: StatusSkipped}
	}

	// Manual corrections always win, with no network traffic at all.
	if loc, ok := r.store.Override(key); ok {
		r.log.DebugContext(ctx, "Resolved from manual correction", "client", client.ID)
		return Outcome{Status: StatusResolved, Location: &loc}
	}

	if loc, ok := r.store.Cached(key); ok && loc.Confidence >= models.HighConfidence {
		r.log.DebugContext(ctx, "Resolved from high-confidence cache",
			"client", client.ID, "confidence", loc.Confidence)
		return Outcome{Status: StatusResolved, Location: &loc}
	}

	if loc := r.resolveViaCEP(ctx, client); loc != nil {
		r.admit(ctx, key, *loc)
		return Outcome{Status: StatusResolved, Location: loc}
	}

	if loc := r.resolveDirect(ctx, client); loc != nil {
		r.admit(ctx, key, *loc)
		return Outcome{Status: StatusResolved, Location: loc}
	}

	if loc := r.resolveCityFallback(ctx, client); loc != nil {
		r.admit(ctx, key, *loc)
		return Outcome{Status: StatusResolved, Location: loc}
	}

	r.log.InfoContext(ctx, "Client unresolved, all fallbacks exhausted", "client", client.ID)
	return Outcome{Status: StatusUnresolved}
}

// resolveViaCEP enriches the address through the postal registry and feeds
// the result to the primary geocoder. Only attempted when the client has a
// valid 8-digit CEP.
func (r *Resolver) resolveViaCEP(ctx context.Context, client models.Client) *models.ResolvedLocation {
	cep := normalizer.ExtractCEP(client.Address)
	if cep == "" {
		return nil
	}

	postal, err := timedLookup(ctx, r, models.ProviderViaCEP, func(callCtx context.Context) (*geocoding.PostalAddress, error) {
		return r.registry.Lookup(callCtx, cep)
	})
	if err != nil {
		r.log.DebugContext(ctx, "CEP lookup failed, continuing cascade",
			"client", client.ID, "cep", cep, "error", err)
		return nil
	}

	query := buildPostalQuery(postal, client.Address)
	region := postal.Region
	if region == "" {
		region = client.Address.Region
	}

	return r.searchPrimary(ctx, client, query, region)
}

// resolveDirect tries every address variation against the primary geocoder,
// most specific first.
func (r *Resolver) resolveDirect(ctx context.Context, client models.Client) *models.ResolvedLocation {
	for _, variation := range normalizer.Variations(client.Address) {
		if loc := r.searchPrimary(ctx, client, variation, client.Address.Region); loc != nil {
			return loc
		}
	}
	return nil
}

// searchPrimary runs one primary-geocoder query, scores and validates the
// match, and returns nil on any failure so the cascade can continue.
func (r *Resolver) searchPrimary(ctx context.Context, client models.Client, query, region string) *models.ResolvedLocation {
	match, err := timedLookup(ctx, r, models.ProviderNominatim, func(callCtx context.Context) (*geocoding.Match, error) {
		return r.primary.Search(callCtx, query)
	})
	if err != nil {
		r.log.DebugContext(ctx, "Primary lookup failed, continuing cascade",
			"client", client.ID, "query", query, "error", err)
		return nil
	}

	coords := models.Coordinates{Latitude: match.Latitude, Longitude: match.Longitude}
	ok, _ := r.validator.Check(ctx, coords, region)
	if !ok {
		return nil
	}

	return &models.ResolvedLocation{
		Latitude:   match.Latitude,
		Longitude:  match.Longitude,
		Confidence: geocoding.Confidence(match),
		Provider:   models.ProviderNominatim,
		Detail:     match.DisplayName,
		ResolvedAt: time.Now(),
	}
}

// resolveCityFallback is the last resort: a coarse city-level coordinate
// with a fixed confidence, deliberately below the high tier.
func (r *Resolver) resolveCityFallback(ctx context.Context, client models.Client) *models.ResolvedLocation {
	city := strings.TrimSpace(client.Address.City)
	if city == "" {
		return nil
	}

	coords, err := timedLookup(ctx, r, models.ProviderGoogle, func(callCtx context.Context) (*models.Coordinates, error) {
		return r.secondary.GeocodeCity(callCtx, city, client.Address.Region)
	})
	if err != nil {
		r.log.DebugContext(ctx, "City fallback failed", "client", client.ID, "error", err)
		return nil
	}

	ok, _ := r.validator.Check(ctx, *coords, client.Address.Region)
	if !ok {
		return nil
	}

	return &models.ResolvedLocation{
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		Confidence: geocoding.CityConfidence,
		Provider:   models.ProviderGoogle,
		Detail:     city,
		ResolvedAt: time.Now(),
	}
}

// timedLookup bounds one provider call with the hard timeout and records
// its duration and failure metrics.
func timedLookup[T any](
	ctx context.Context,
	r *Resolver,
	provider models.Provider,
	call func(context.Context) (*T, error),
) (*T, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	result, err := call(callCtx)
	r.metrics.RequestSeconds.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())

	if err != nil {
		r.metrics.APIErrors.Inc()
		return nil, err
	}
	return result, nil
}

// admit offers a fresh automated result to the cache; admission failures are
// logged but never abort the client, since the result itself is still good.
func (r *Resolver) admit(ctx context.Context, key string, loc models.ResolvedLocation) {
	if _, err := r.store.AdmitCache(ctx, key, loc); err != nil {
		r.log.ErrorContext(ctx, "Failed to persist cache entry", "key", key, "error", err)
	}
}

// buildPostalQuery assembles the primary-geocoder query from a postal
// registry answer, keeping the client's house number when the street is
// known.
func buildPostalQuery(postal *geocoding.PostalAddress, addr models.ClientAddress) string {
	parts := []string{}

	street := postal.Street
	if street != "" && addr.Number != "" {
		street = street + ", " + addr.Number
	}
	for _, p := range []string{street, postal.Neighborhood, postal.City, postal.Region, normalizer.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ", ")
}
