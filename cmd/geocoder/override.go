package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pmgagenda/geocoder/internal/models"
	"github.com/pmgagenda/geocoder/internal/normalizer"
	"github.com/spf13/cobra"
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage manual coordinate corrections",
}

var overrideSetCmd = &cobra.Command{
	Use:   "set <client-id> <latitude> <longitude>",
	Short: "Record a human-confirmed coordinate for a client",
	Long: `
Records a manual correction for a client's address. The correction
permanently shadows every cached or freshly geocoded result for that address
until it is deleted with "override delete".
`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOverrideSet(cmd.Context(), args)
	},
}

var overrideDeleteCmd = &cobra.Command{
	Use:   "delete <client-id>",
	Short: "Remove the manual correction for a client's address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOverrideDelete(cmd.Context(), args[0])
	},
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every manual correction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOverrideList(cmd.Context())
	},
}

func init() {
	overrideCmd.AddCommand(overrideSetCmd, overrideDeleteCmd, overrideListCmd)
	rootCmd.AddCommand(overrideCmd)
}

func runOverrideSet(ctx context.Context, args []string) error {
	clientID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid client id %q: %w", args[0], err)
	}

	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude %q", args[1])
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil || lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude %q", args[2])
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.repo.FetchClient(ctx, clientID)
	if err != nil {
		return err
	}

	key, err := normalizer.Key(client.Address)
	if err != nil {
		return fmt.Errorf("client %d has no normalizable address: %w", clientID, err)
	}

	detail := fmt.Sprintf("%s (corrigido manualmente)", client.Name)
	if err = a.stores.PutOverride(ctx, key, lat, lon, detail); err != nil {
		return err
	}

	// Move the marker right away instead of waiting for the next batch.
	if err = a.repo.UpdateClientLocation(ctx, clientID, models.Manual(lat, lon, detail)); err != nil {
		return err
	}

	fmt.Printf("Correction saved for client %d (%s)\n", clientID, client.Name)
	return nil
}

func runOverrideDelete(ctx context.Context, rawID string) error {
	clientID, err := strconv.Atoi(rawID)
	if err != nil {
		return fmt.Errorf("invalid client id %q: %w", rawID, err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.repo.FetchClient(ctx, clientID)
	if err != nil {
		return err
	}

	key, err := normalizer.Key(client.Address)
	if err != nil {
		return fmt.Errorf("client %d has no normalizable address: %w", clientID, err)
	}

	if err = a.stores.DeleteOverride(ctx, key); err != nil {
		return err
	}

	fmt.Printf("Correction removed for client %d (%s)\n", clientID, client.Name)
	return nil
}

func runOverrideList(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	overrides := a.stores.Overrides()
	if len(overrides) == 0 {
		fmt.Println("No manual corrections recorded.")
		return nil
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		loc := overrides[k]
		fmt.Printf("%-60s  %9.5f  %10.5f  %s\n", k, loc.Latitude, loc.Longitude, loc.Detail)
	}
	return nil
}
