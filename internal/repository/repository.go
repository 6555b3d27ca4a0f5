// Package repository persists the resolution cache, the manual-correction
// table and the client list in PostgreSQL.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pmgagenda/geocoder/internal/models"
)

// Database is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides the persistence operations of the geocoder.
type Repository struct {
	db  Database
	log *slog.Logger
}

// Interface lists the repository operations consumed by the service layer.
type Interface interface {
	FetchClients(ctx context.Context, includeInactive bool) ([]models.Client, error)
	UpdateClientLocation(ctx context.Context, clientID int, loc models.ResolvedLocation) error
	LoadAddressCache(ctx context.Context) (map[string]models.ResolvedLocation, error)
	SaveCacheEntry(ctx context.Context, key string, loc models.ResolvedLocation) error
	ClearAddressCache(ctx context.Context) error
	LoadCorrections(ctx context.Context) (map[string]models.ResolvedLocation, error)
	SaveCorrection(ctx context.Context, key string, loc models.ResolvedLocation) error
	DeleteCorrection(ctx context.Context, key string) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// NewDatabase connects a pgx pool to the configured PostgreSQL instance and
// verifies the connection with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
