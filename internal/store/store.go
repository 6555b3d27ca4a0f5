// Package store keeps the resolution cache and the manual-override table in
// memory for the duration of a batch run, writing every mutation through to
// the repository immediately.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmgagenda/geocoder/internal/models"
)

// Repository is the persistence surface the store needs.
type Repository interface {
	LoadAddressCache(ctx context.Context) (map[string]models.ResolvedLocation, error)
	SaveCacheEntry(ctx context.Context, key string, loc models.ResolvedLocation) error
	ClearAddressCache(ctx context.Context) error
	LoadCorrections(ctx context.Context) (map[string]models.ResolvedLocation, error)
	SaveCorrection(ctx context.Context, key string, loc models.ResolvedLocation) error
	DeleteCorrection(ctx context.Context, key string) error
}

// Store holds both key->location tables. Execution is single-threaded
// between suspension points, so plain maps need no locking.
type Store struct {
	repo      Repository
	log       *slog.Logger
	cache     map[string]models.ResolvedLocation
	overrides map[string]models.ResolvedLocation
}

// Load reads both persisted tables into memory. A failure here must abort
// the run: continuing with an empty override table would silently discard
// human corrections.
func Load(ctx context.Context, repo Repository, log *slog.Logger) (*Store, error) {
	cache, err := repo.LoadAddressCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load address cache: %w", err)
	}

	overrides, err := repo.LoadCorrections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load manual corrections: %w", err)
	}

	log.InfoContext(ctx, "Location tables loaded", "cached", len(cache), "overrides", len(overrides))

	return &Store{repo: repo, log: log, cache: cache, overrides: overrides}, nil
}

// Override returns the manual correction for a key, if one exists.
func (s *Store) Override(key string) (models.ResolvedLocation, bool) {
	loc, ok := s.overrides[key]
	return loc, ok
}

// Cached returns the automated resolution for a key, if one exists.
func (s *Store) Cached(key string) (models.ResolvedLocation, bool) {
	loc, ok := s.cache[key]
	return loc, ok
}

// AdmitCache stores an automated resolution under a key, but only when it
// strictly beats the confidence already cached there; an equal or lower
// score never downgrades the cache. Manual results are refused: those belong
// in the override table.
func (s *Store) AdmitCache(ctx context.Context, key string, loc models.ResolvedLocation) (bool, error) {
	if loc.ManuallyEdited || loc.Provider == models.ProviderManual {
		return false, nil
	}

	if existing, ok := s.cache[key]; ok && existing.Confidence >= loc.Confidence {
		s.log.DebugContext(ctx, "Cache entry kept, new result does not beat it",
			"key", key, "cached", existing.Confidence, "new", loc.Confidence)
		return false, nil
	}

	if err := s.repo.SaveCacheEntry(ctx, key, loc); err != nil {
		return false, err
	}
	s.cache[key] = loc

	return true, nil
}

// PutOverride records a human-confirmed coordinate, unconditionally
// shadowing any cache entry or previous override for the key.
func (s *Store) PutOverride(ctx context.Context, key string, lat, lon float64, detail string) error {
	loc := models.Manual(lat, lon, detail)

	if err := s.repo.SaveCorrection(ctx, key, loc); err != nil {
		return err
	}
	s.overrides[key] = loc

	s.log.InfoContext(ctx, "Manual correction saved", "key", key, "lat", lat, "lon", lon)

	return nil
}

// DeleteOverride removes a human correction, letting automated resolution
// apply again for the key.
func (s *Store) DeleteOverride(ctx context.Context, key string) error {
	if err := s.repo.DeleteCorrection(ctx, key); err != nil {
		return err
	}
	delete(s.overrides, key)

	return nil
}

// ClearCache drops every automated resolution, in memory and on disk.
// Overrides are kept.
func (s *Store) ClearCache(ctx context.Context) error {
	if err := s.repo.ClearAddressCache(ctx); err != nil {
		return err
	}
	s.cache = make(map[string]models.ResolvedLocation)

	return nil
}

// Overrides returns a copy of the override table for operator inspection.
func (s *Store) Overrides() map[string]models.ResolvedLocation {
	out := make(map[string]models.ResolvedLocation, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// CacheStats summarizes the in-memory cache by confidence tier.
func (s *Store) CacheStats() (total, high, medium, low int) {
	for _, loc := range s.cache {
		total++
		switch models.Tier(loc.Confidence) {
		case "high":
			high++
		case "medium":
			medium++
		default:
			low++
		}
	}
	return total, high, medium, low
}
