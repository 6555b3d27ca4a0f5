package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the resolution cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the cache size and its confidence tiers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCacheStats(cmd.Context())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every automated resolution (manual corrections are kept)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCacheClear(cmd.Context())
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	total, high, medium, low := a.stores.CacheStats()
	fmt.Printf("%d cached resolutions: %d high, %d medium, %d low confidence\n",
		total, high, medium, low)
	fmt.Printf("%d manual corrections\n", len(a.stores.Overrides()))
	return nil
}

func runCacheClear(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err = a.stores.ClearCache(ctx); err != nil {
		return err
	}

	fmt.Println("Resolution cache cleared.")
	return nil
}
