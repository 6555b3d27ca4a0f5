package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pmgagenda/geocoder/internal/geocoding"
	"github.com/pmgagenda/geocoder/internal/geovalidator"
	"github.com/pmgagenda/geocoder/internal/metrics"
	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/ratelimit"
	"github.com/pmgagenda/geocoder/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"googlemaps.github.io/maps"
)

var (
	flagIncludeInactive bool
	flagNoProgress      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run a batch resolution over the client list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runResolve(cmd.Context())
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&flagIncludeInactive, "include-inactive", false,
		"resolve inactive clients as well as active ones")
	resolveCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false,
		"disable the progress bar")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(parent context.Context) error {
	// The batch may be aborted between clients with Ctrl+C.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	go startMonitoringServer(ctx, a.log, reg, a.pool, a.cfg.Port)

	gate := ratelimit.NewGate(a.cfg.RateInterval)
	registry := geocoding.NewViaCEPProvider(gate, a.log)
	primary := geocoding.NewNominatimProvider(gate, a.log)
	secondary, err := newCityFallback(a.cfg.GoogleAPIKey, gate, a.log)
	if err != nil {
		return err
	}

	resolver := service.NewResolver(
		a.log,
		a.stores,
		registry,
		primary,
		secondary,
		geovalidator.NewValidator(a.log),
		appMetrics,
		a.cfg.ProviderTimeout,
	)
	batch := service.NewBatch(a.log, a.repo, resolver, appMetrics)

	stats, err := batch.Run(ctx, flagIncludeInactive, progressReporter())
	if err != nil {
		return err
	}

	fmt.Printf("%d of %d resolved, %d%% high confidence (%d skipped, %d unresolved)\n",
		stats.Resolved, stats.Total, stats.HighPercent(), stats.Skipped, stats.Unresolved)

	return nil
}

// newCityFallback builds the secondary geocoder. Without an API key the
// fallback is disabled and the cascade simply ends at the primary geocoder.
func newCityFallback(apiKey string, gate *ratelimit.Gate, log *slog.Logger) (service.CityGeocoder, error) {
	if apiKey == "" {
		log.Warn("No Google API key configured, city-level fallback disabled")
		return disabledCityFallback{}, nil
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return geocoding.NewGoogleProvider(client, gate, log), nil
}

type disabledCityFallback struct{}

var errCityFallbackDisabled = errors.New("city-level fallback is disabled")

func (disabledCityFallback) GeocodeCity(_ context.Context, _, _ string) (*models.Coordinates, error) {
	return nil, errCityFallbackDisabled
}

// progressReporter drives a terminal progress bar from batch callbacks.
func progressReporter() service.ProgressFunc {
	if flagNoProgress {
		return nil
	}

	var bar *progressbar.ProgressBar
	return func(p service.Progress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription("Resolving clients"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(p.Current)
	}
}

// startMonitoringServer starts an HTTP server that provides health check and
// metrics endpoints for the duration of the batch run.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	dtb *pgxpool.Pool,
	port int,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		status, body := http.StatusOK, "OK"
		if err := dtb.Ping(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	log.InfoContext(ctx, "Starting monitoring server", "port", port)
	const (
		readTimeout  = 5 * time.Second
		writeTimeout = 10 * time.Second
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if err := server.ListenAndServe(); err != nil {
		log.ErrorContext(ctx, "Monitoring server failed", "error", err)
	}
}
