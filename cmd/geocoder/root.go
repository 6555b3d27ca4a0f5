package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pmgagenda/geocoder/internal/config"
	"github.com/pmgagenda/geocoder/internal/repository"
	"github.com/pmgagenda/geocoder/internal/store"
	"github.com/spf13/cobra"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

var rootCmd = &cobra.Command{
	Use:   "geocoder",
	Short: "Resolve client addresses to map coordinates",
	Long: `
geocoder locates geographic coordinates for client street addresses so they
can be plotted on a map. It cascades through a postal-code registry, a
free-text geocoder and a city-level fallback, honours manual corrections
over every automated result, and keeps a persistent resolution cache.
`,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the collaborators every subcommand needs.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	pool   *pgxpool.Pool
	repo   *repository.Repository
	stores *store.Store
}

// openApp loads configuration, connects the database and loads both
// persisted location tables. Callers must Close the returned app.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Env)

	pool, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRepository(pool, logger)

	// Failing to load the tables is fatal: running with an empty override
	// table would silently discard human corrections.
	st, err := store.Load(ctx, repo, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: logger, pool: pool, repo: repo, stores: st}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
