package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmgagenda/geocoder/internal/models"
)

// ErrClientNotFound is returned when a client id does not exist.
var ErrClientNotFound = errors.New("client not found")

// FetchClients retrieves the clients assigned to a batch run, ordered by
// creation date. By default only active clients are returned; with
// includeInactive the inactive ones are appended to the run as well.
// Clients without any address field are not part of a run.
func (r *Repository) FetchClients(ctx context.Context, includeInactive bool) ([]models.Client, error) {
	var clients []models.Client
	query := `
		SELECT id, name, active, street, number, neighborhood, city, region, postal_code, full_address
		FROM public.clients
		WHERE
			(active = true OR $1 = true)
			AND (city <> '' OR full_address <> '')
		ORDER BY created_at ASC;
	`

	rows, err := r.db.Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients for batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		if errScan := rows.Scan(
			&c.ID, &c.Name, &c.Active,
			&c.Address.Street, &c.Address.Number, &c.Address.Neighborhood,
			&c.Address.City, &c.Address.Region, &c.Address.PostalCode, &c.Address.FullAddress,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", errScan)
		}
		clients = append(clients, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return clients, nil
}

// FetchClient retrieves a single client by its identifier.
func (r *Repository) FetchClient(ctx context.Context, clientID int) (models.Client, error) {
	var c models.Client
	query := `
		SELECT id, name, active, street, number, neighborhood, city, region, postal_code, full_address
		FROM public.clients
		WHERE id = $1;
	`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return c, fmt.Errorf("failed to query client %d: %w", clientID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return c, fmt.Errorf("failed to read row: %w", err)
		}
		return c, fmt.Errorf("client %d: %w", clientID, ErrClientNotFound)
	}

	if err = rows.Scan(
		&c.ID, &c.Name, &c.Active,
		&c.Address.Street, &c.Address.Number, &c.Address.Neighborhood,
		&c.Address.City, &c.Address.Region, &c.Address.PostalCode, &c.Address.FullAddress,
	); err != nil {
		return c, fmt.Errorf("failed to scan client row: %w", err)
	}

	return c, nil
}

// UpdateClientLocation stores the resolved coordinate tuple that the
// map-rendering collaborator reads to place a marker.
func (r *Repository) UpdateClientLocation(ctx context.Context, clientID int, loc models.ResolvedLocation) error {
	query := `
		UPDATE public.clients
		SET
			latitude = $1,
			longitude = $2,
			confidence = $3,
			provider = $4,
			manually_edited = $5,
			resolved_at = $6
		WHERE id = $7;
	`

	_, err := r.db.Exec(ctx, query,
		loc.Latitude, loc.Longitude, loc.Confidence, string(loc.Provider), loc.ManuallyEdited, loc.ResolvedAt, clientID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client location: %w", err)
	}

	return nil
}

// LoadAddressCache reads the whole resolution cache into memory. Called once
// at batch start; an error here is fatal to the run, since proceeding with
// an empty cache would silently redo (and possibly degrade) prior work.
func (r *Repository) LoadAddressCache(ctx context.Context) (map[string]models.ResolvedLocation, error) {
	return r.loadLocationTable(ctx, `
		SELECT key, latitude, longitude, confidence, provider, manually_edited, detail, resolved_at
		FROM public.address_cache;
	`, "address cache")
}

// LoadCorrections reads the whole manual-correction table into memory.
// Losing these would be a silent data-quality regression, so an error here
// is fatal to the run.
func (r *Repository) LoadCorrections(ctx context.Context) (map[string]models.ResolvedLocation, error) {
	return r.loadLocationTable(ctx, `
		SELECT key, latitude, longitude, confidence, provider, manually_edited, detail, resolved_at
		FROM public.manual_corrections;
	`, "manual corrections")
}

func (r *Repository) loadLocationTable(
	ctx context.Context,
	query, table string,
) (map[string]models.ResolvedLocation, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	entries := make(map[string]models.ResolvedLocation)
	for rows.Next() {
		var key string
		var loc models.ResolvedLocation
		var provider string
		if errScan := rows.Scan(
			&key, &loc.Latitude, &loc.Longitude, &loc.Confidence,
			&provider, &loc.ManuallyEdited, &loc.Detail, &loc.ResolvedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, errScan)
		}
		loc.Provider = models.Provider(provider)
		entries[key] = loc
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Loaded location table", "table", table, "entries", len(entries))

	return entries, nil
}

// SaveCacheEntry writes one resolution cache entry, overwriting any previous
// entry under the same key. Flushed immediately so a crash mid-batch loses
// at most the in-flight client.
func (r *Repository) SaveCacheEntry(ctx context.Context, key string, loc models.ResolvedLocation) error {
	return r.upsertLocation(ctx, "public.address_cache", key, loc)
}

// SaveCorrection writes one manual correction, unconditionally replacing any
// previous correction for the same key.
func (r *Repository) SaveCorrection(ctx context.Context, key string, loc models.ResolvedLocation) error {
	return r.upsertLocation(ctx, "public.manual_corrections", key, loc)
}

func (r *Repository) upsertLocation(ctx context.Context, table, key string, loc models.ResolvedLocation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, latitude, longitude, confidence, provider, manually_edited, detail, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			confidence = EXCLUDED.confidence,
			provider = EXCLUDED.provider,
			manually_edited = EXCLUDED.manually_edited,
			detail = EXCLUDED.detail,
			resolved_at = EXCLUDED.resolved_at;
	`, table)

	_, err := r.db.Exec(ctx, query,
		key, loc.Latitude, loc.Longitude, loc.Confidence,
		string(loc.Provider), loc.ManuallyEdited, loc.Detail, loc.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into %s: %w", table, err)
	}

	return nil
}

// DeleteCorrection removes a manual correction. Only a human action calls
// this; the resolver never deletes overrides.
func (r *Repository) DeleteCorrection(ctx context.Context, key string) error {
	query := `DELETE FROM public.manual_corrections WHERE key = $1;`

	_, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return fmt.Errorf("failed to delete manual correction: %w", err)
	}

	return nil
}

// ClearAddressCache drops every automated resolution. Manual corrections are
// untouched.
func (r *Repository) ClearAddressCache(ctx context.Context) error {
	query := `DELETE FROM public.address_cache;`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear address cache: %w", err)
	}

	return nil
}
