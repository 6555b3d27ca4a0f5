package service_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pmgagenda/geocoder/internal/metrics"
	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatchRepo implements repository.Interface over fixed data.
type fakeBatchRepo struct {
	clients   []models.Client
	fetchErr  error
	updates   map[int]models.ResolvedLocation
	updateErr error
}

func newFakeBatchRepo(clients ...models.Client) *fakeBatchRepo {
	return &fakeBatchRepo{clients: clients, updates: map[int]models.ResolvedLocation{}}
}

func (f *fakeBatchRepo) FetchClients(_ context.Context, _ bool) ([]models.Client, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.clients, nil
}

func (f *fakeBatchRepo) UpdateClientLocation(_ context.Context, clientID int, loc models.ResolvedLocation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[clientID] = loc
	return nil
}

func (f *fakeBatchRepo) LoadAddressCache(_ context.Context) (map[string]models.ResolvedLocation, error) {
	return map[string]models.ResolvedLocation{}, nil
}

func (f *fakeBatchRepo) SaveCacheEntry(_ context.Context, _ string, _ models.ResolvedLocation) error {
	return nil
}

func (f *fakeBatchRepo) ClearAddressCache(_ context.Context) error { return nil }

func (f *fakeBatchRepo) LoadCorrections(_ context.Context) (map[string]models.ResolvedLocation, error) {
	return map[string]models.ResolvedLocation{}, nil
}

func (f *fakeBatchRepo) SaveCorrection(_ context.Context, _ string, _ models.ResolvedLocation) error {
	return nil
}

func (f *fakeBatchRepo) DeleteCorrection(_ context.Context, _ string) error { return nil }

// scriptedResolver returns a pre-planned outcome per client ID.
type scriptedResolver struct {
	outcomes map[int]service.Outcome
	resolved []int
	cancel   context.CancelFunc // When set, fires after the first resolution.
}

func (s *scriptedResolver) Resolve(_ context.Context, client models.Client) service.Outcome {
	s.resolved = append(s.resolved, client.ID)
	if s.cancel != nil {
		s.cancel()
	}
	if outcome, ok := s.outcomes[client.ID]; ok {
		return outcome
	}
	return service.Outcome{Status: service.StatusUnresolved}
}

func resolvedOutcome(confidence float64) service.Outcome {
	return service.Outcome{
		Status: service.StatusResolved,
		Location: &models.ResolvedLocation{
			Latitude:   -23.22,
			Longitude:  -45.90,
			Confidence: confidence,
			Provider:   models.ProviderNominatim,
		},
	}
}

func batchClient(id int) models.Client {
	return models.Client{
		ID:      id,
		Name:    "Cliente",
		Active:  true,
		Address: models.ClientAddress{City: "São José dos Campos", Region: "SP"},
	}
}

func newBatch(repo *fakeBatchRepo, resolver service.ClientResolver) *service.Batch {
	return service.NewBatch(slog.Default(), repo, resolver, metrics.NewMetrics(prometheus.NewRegistry()))
}

func TestBatch_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates outcomes into precision stats", func(t *testing.T) {
		repo := newFakeBatchRepo(
			batchClient(1), batchClient(2), batchClient(3), batchClient(4), batchClient(5),
		)
		resolver := &scriptedResolver{outcomes: map[int]service.Outcome{
			1: resolvedOutcome(0.95),
			2: resolvedOutcome(0.7),
			3: resolvedOutcome(0.4),
			4: {Status: service.StatusSkipped},
			// Client 5 defaults to unresolved.
		}}

		stats, err := newBatch(repo, resolver).Run(ctx, false, nil)

		require.NoError(t, err)
		assert.Equal(t, 5, stats.Total)
		assert.Equal(t, 3, stats.Resolved)
		assert.Equal(t, 1, stats.Skipped)
		assert.Equal(t, 1, stats.Unresolved)
		assert.Equal(t, 1, stats.High)
		assert.Equal(t, 1, stats.Medium)
		assert.Equal(t, 1, stats.Low)
		assert.Equal(t, 20, stats.HighPercent())
	})

	t.Run("resolved locations are written back", func(t *testing.T) {
		repo := newFakeBatchRepo(batchClient(1), batchClient(2))
		resolver := &scriptedResolver{outcomes: map[int]service.Outcome{
			1: resolvedOutcome(0.9),
		}}

		_, err := newBatch(repo, resolver).Run(ctx, false, nil)

		require.NoError(t, err)
		assert.Contains(t, repo.updates, 1)
		assert.NotContains(t, repo.updates, 2, "unresolved clients keep their row untouched")
	})

	t.Run("write-back failure does not abort the batch", func(t *testing.T) {
		repo := newFakeBatchRepo(batchClient(1), batchClient(2))
		repo.updateErr = assert.AnError
		resolver := &scriptedResolver{outcomes: map[int]service.Outcome{
			1: resolvedOutcome(0.9),
			2: resolvedOutcome(0.9),
		}}

		stats, err := newBatch(repo, resolver).Run(ctx, false, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, stats.Resolved)
	})

	t.Run("fetch failure aborts before any resolution", func(t *testing.T) {
		repo := newFakeBatchRepo()
		repo.fetchErr = assert.AnError
		resolver := &scriptedResolver{}

		stats, err := newBatch(repo, resolver).Run(ctx, false, nil)

		require.Error(t, err)
		assert.Nil(t, stats)
		assert.Empty(t, resolver.resolved)
	})

	t.Run("empty client list finishes cleanly", func(t *testing.T) {
		stats, err := newBatch(newFakeBatchRepo(), &scriptedResolver{}).Run(ctx, false, nil)

		require.NoError(t, err)
		assert.Zero(t, stats.Total)
	})

	t.Run("cancellation stops between clients", func(t *testing.T) {
		runCtx, cancel := context.WithCancel(context.Background())
		repo := newFakeBatchRepo(batchClient(1), batchClient(2), batchClient(3))
		resolver := &scriptedResolver{
			outcomes: map[int]service.Outcome{1: resolvedOutcome(0.9)},
			cancel:   cancel,
		}

		stats, err := newBatch(repo, resolver).Run(runCtx, false, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch aborted")
		// The in-flight client finished; the rest never started.
		assert.Equal(t, []int{1}, resolver.resolved)
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.Resolved)
	})

	t.Run("progress callback sees every client", func(t *testing.T) {
		repo := newFakeBatchRepo(batchClient(1), batchClient(2))
		resolver := &scriptedResolver{}

		var updates []service.Progress
		_, err := newBatch(repo, resolver).Run(ctx, false, func(p service.Progress) {
			updates = append(updates, p)
		})

		require.NoError(t, err)
		require.Len(t, updates, 2)
		assert.Equal(t, 1, updates[0].Current)
		assert.Equal(t, 2, updates[0].Total)
		assert.Equal(t, 50, updates[0].Percentage)
		assert.Equal(t, 100, updates[1].Percentage)
	})
}
