package store_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepository is an in-memory Repository recording every write.
type fakeRepository struct {
	cache       map[string]models.ResolvedLocation
	corrections map[string]models.ResolvedLocation
	saves       int
	loadErr     error
	saveErr     error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		cache:       map[string]models.ResolvedLocation{},
		corrections: map[string]models.ResolvedLocation{},
	}
}

func (f *fakeRepository) LoadAddressCache(_ context.Context) (map[string]models.ResolvedLocation, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make(map[string]models.ResolvedLocation, len(f.cache))
	for k, v := range f.cache {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepository) SaveCacheEntry(_ context.Context, key string, loc models.ResolvedLocation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.cache[key] = loc
	f.saves++
	return nil
}

func (f *fakeRepository) ClearAddressCache(_ context.Context) error {
	f.cache = map[string]models.ResolvedLocation{}
	return nil
}

func (f *fakeRepository) LoadCorrections(_ context.Context) (map[string]models.ResolvedLocation, error) {
	out := make(map[string]models.ResolvedLocation, len(f.corrections))
	for k, v := range f.corrections {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepository) SaveCorrection(_ context.Context, key string, loc models.ResolvedLocation) error {
	f.corrections[key] = loc
	return nil
}

func (f *fakeRepository) DeleteCorrection(_ context.Context, key string) error {
	delete(f.corrections, key)
	return nil
}

func autoLoc(confidence float64) models.ResolvedLocation {
	return models.ResolvedLocation{
		Latitude:   -23.22,
		Longitude:  -45.90,
		Confidence: confidence,
		Provider:   models.ProviderNominatim,
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("loads both tables", func(t *testing.T) {
		repo := newFakeRepository()
		repo.cache["rua a 1 cidade sp"] = autoLoc(0.9)
		repo.corrections["rua b 2 cidade sp"] = models.Manual(-23.1, -45.8, "corrigido")

		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		_, ok := stores.Cached("rua a 1 cidade sp")
		assert.True(t, ok)
		_, ok = stores.Override("rua b 2 cidade sp")
		assert.True(t, ok)
	})

	t.Run("load failure aborts", func(t *testing.T) {
		repo := newFakeRepository()
		repo.loadErr = assert.AnError

		stores, err := store.Load(ctx, repo, logger)
		require.Error(t, err)
		assert.Nil(t, stores)
	})
}

func TestStore_AdmitCache(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("new key is admitted and persisted", func(t *testing.T) {
		repo := newFakeRepository()
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		admitted, err := stores.AdmitCache(ctx, "key", autoLoc(0.7))
		require.NoError(t, err)
		assert.True(t, admitted)

		cached, ok := stores.Cached("key")
		require.True(t, ok)
		assert.InEpsilon(t, 0.7, cached.Confidence, 0.0001)
		assert.Equal(t, 1, repo.saves, "admission writes through")
	})

	t.Run("strictly greater confidence overwrites", func(t *testing.T) {
		repo := newFakeRepository()
		repo.cache["key"] = autoLoc(0.6)
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		admitted, err := stores.AdmitCache(ctx, "key", autoLoc(0.9))
		require.NoError(t, err)
		assert.True(t, admitted)

		cached, _ := stores.Cached("key")
		assert.InEpsilon(t, 0.9, cached.Confidence, 0.0001)
	})

	t.Run("equal confidence keeps the existing entry", func(t *testing.T) {
		repo := newFakeRepository()
		repo.cache["key"] = autoLoc(0.7)
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		admitted, err := stores.AdmitCache(ctx, "key", autoLoc(0.7))
		require.NoError(t, err)
		assert.False(t, admitted)
		assert.Zero(t, repo.saves)
	})

	t.Run("lower confidence keeps the existing entry", func(t *testing.T) {
		repo := newFakeRepository()
		repo.cache["key"] = autoLoc(0.9)
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		admitted, err := stores.AdmitCache(ctx, "key", autoLoc(0.5))
		require.NoError(t, err)
		assert.False(t, admitted)

		cached, _ := stores.Cached("key")
		assert.InEpsilon(t, 0.9, cached.Confidence, 0.0001)
	})

	t.Run("manual results are refused", func(t *testing.T) {
		repo := newFakeRepository()
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		admitted, err := stores.AdmitCache(ctx, "key", models.Manual(-23.1, -45.8, "corrigido"))
		require.NoError(t, err)
		assert.False(t, admitted)

		_, ok := stores.Cached("key")
		assert.False(t, ok)
	})

	t.Run("persistence failure leaves memory untouched", func(t *testing.T) {
		repo := newFakeRepository()
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)
		repo.saveErr = assert.AnError

		admitted, err := stores.AdmitCache(ctx, "key", autoLoc(0.8))
		require.Error(t, err)
		assert.False(t, admitted)

		_, ok := stores.Cached("key")
		assert.False(t, ok)
	})
}

func TestStore_Overrides(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("put and delete round-trip", func(t *testing.T) {
		repo := newFakeRepository()
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)

		require.NoError(t, stores.PutOverride(ctx, "key", -23.1, -45.8, "Cliente X (corrigido manualmente)"))

		loc, ok := stores.Override("key")
		require.True(t, ok)
		assert.True(t, loc.ManuallyEdited)
		assert.Equal(t, models.ProviderManual, loc.Provider)
		assert.InEpsilon(t, 1.0, loc.Confidence, 0.0001)
		assert.Contains(t, repo.corrections, "key")

		require.NoError(t, stores.DeleteOverride(ctx, "key"))
		_, ok = stores.Override("key")
		assert.False(t, ok)
		assert.NotContains(t, repo.corrections, "key")
	})

	t.Run("overrides returns a copy", func(t *testing.T) {
		repo := newFakeRepository()
		stores, err := store.Load(ctx, repo, logger)
		require.NoError(t, err)
		require.NoError(t, stores.PutOverride(ctx, "key", -23.1, -45.8, "detalhe"))

		snapshot := stores.Overrides()
		delete(snapshot, "key")

		_, ok := stores.Override("key")
		assert.True(t, ok, "mutating the snapshot must not touch the store")
	})
}

func TestStore_ClearCache(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	repo.cache["a"] = autoLoc(0.9)
	repo.corrections["b"] = models.Manual(-23.1, -45.8, "corrigido")

	stores, err := store.Load(ctx, repo, slog.Default())
	require.NoError(t, err)

	require.NoError(t, stores.ClearCache(ctx))

	_, ok := stores.Cached("a")
	assert.False(t, ok)
	assert.Empty(t, repo.cache)

	// Overrides survive a cache clear.
	_, ok = stores.Override("b")
	assert.True(t, ok)
}

func TestStore_CacheStats(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	repo.cache["a"] = autoLoc(0.95)
	repo.cache["b"] = autoLoc(0.8)
	repo.cache["c"] = autoLoc(0.65)
	repo.cache["d"] = autoLoc(0.3)

	stores, err := store.Load(ctx, repo, slog.Default())
	require.NoError(t, err)

	total, high, medium, low := stores.CacheStats()
	assert.Equal(t, 4, total)
	assert.Equal(t, 2, high)
	assert.Equal(t, 1, medium)
	assert.Equal(t, 1, low)
}
