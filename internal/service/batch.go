package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmgagenda/geocoder/internal/metrics"
	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/repository"
)

// Progress reports incremental batch progress to an external display.
type Progress struct {
	Current    int
	Total      int
	Client     models.Client
	Percentage int
}

// ProgressFunc receives a Progress update after each client.
type ProgressFunc func(Progress)

// ClientResolver resolves one client. Implemented by *Resolver.
type ClientResolver interface {
	Resolve(ctx context.Context, client models.Client) Outcome
}

// Batch iterates the client list assigned to a run and resolves each client
// strictly one at a time. There is no parallel fan-out: all network egress
// shares one rate gate, so parallelism would only add complexity without
// reducing wall-clock time.
type Batch struct {
	log      *slog.Logger
	repo     repository.Interface
	resolver ClientResolver
	metrics  *metrics.Metrics
}

// NewBatch creates the batch orchestrator.
func NewBatch(log *slog.Logger, repo repository.Interface, resolver ClientResolver, appMetrics *metrics.Metrics) *Batch {
	return &Batch{log: log, repo: repo, resolver: resolver, metrics: appMetrics}
}

// Run resolves every client in the run's scope and returns the aggregated
// precision statistics. Individual client failures never abort the batch;
// the run stops early only when the context is canceled, and then only
// between clients.
func (b *Batch) Run(ctx context.Context, includeInactive bool, progress ProgressFunc) (*models.PrecisionStats, error) {
	clients, err := b.repo.FetchClients(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients for batch: %w", err)
	}

	stats := &models.PrecisionStats{}
	if len(clients) == 0 {
		b.log.InfoContext(ctx, "No clients to resolve.")
		return stats, nil
	}

	b.log.InfoContext(ctx, "Batch run started",
		"clients", len(clients), "include_inactive", includeInactive)

	for i, client := range clients {
		// Cancellation applies between clients only; a resolution already
		// started runs to completion or per-call timeout.
		if ctx.Err() != nil {
			b.log.WarnContext(ctx, "Batch aborted", "processed", i, "total", len(clients))
			return stats, fmt.Errorf("batch aborted: %w", ctx.Err())
		}

		stats.Total++
		outcome := b.resolver.Resolve(ctx, client)
		b.record(ctx, client, outcome, stats)

		if progress != nil {
			progress(Progress{
				Current:    i + 1,
				Total:      len(clients),
				Client:     client,
				Percentage: (i + 1) * 100 / len(clients),
			})
		}
	}

	b.log.InfoContext(ctx, "Batch run finished",
		"total", stats.Total,
		"resolved", stats.Resolved,
		"skipped", stats.Skipped,
		"unresolved", stats.Unresolved,
		"high", stats.High,
		"medium", stats.Medium,
		"low", stats.Low,
		"high_percent", stats.HighPercent(),
	)

	return stats, nil
}

// record updates stats, metrics and the client row for one outcome.
func (b *Batch) record(ctx context.Context, client models.Client, outcome Outcome, stats *models.PrecisionStats) {
	b.metrics.ClientsProcessed.WithLabelValues(string(outcome.Status)).Inc()

	switch outcome.Status {
	case StatusResolved:
		loc := *outcome.Location
		stats.RecordResolved(loc.Confidence)
		b.metrics.PrecisionTiers.WithLabelValues(models.Tier(loc.Confidence)).Inc()

		if err := b.repo.UpdateClientLocation(ctx, client.ID, loc); err != nil {
			b.log.ErrorContext(ctx, "Failed to store client location",
				"client", client.ID, "error", err)
		}
	case StatusSkipped:
		stats.Skipped++
	case StatusUnresolved:
		stats.Unresolved++
	}
}
