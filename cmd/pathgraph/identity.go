package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pathgraph/internal/config"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Inspect the identity cache",
}

var identityStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts and the last surrogate key",
	Args:  cobra.NoArgs,
	RunE:  runIdentityStats,
}

func init() {
	identityCmd.AddCommand(identityStatsCmd)
}

func runIdentityStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := cfg.Validate(config.ValidationContextStats).Err(); err != nil {
		return err
	}

	store, err := openIdentityStore(ctx, cfg.Identity)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	last, err := store.LastKey(ctx)
	if err != nil {
		return err
	}

	location := cfg.Identity.Path
	if cfg.Identity.Backend == "redis" {
		location = cfg.Identity.RedisAddr
	}
	fmt.Printf("Identity cache (%s, %s)\n", cfg.Identity.Backend, location)

	total := 0
	for _, ns := range sortedKeys(counts) {
		fmt.Printf("  %-20s %d\n", ns, counts[ns])
		total += counts[ns]
	}
	fmt.Printf("  %-20s %d\n", "total", total)
	fmt.Printf("  Last surrogate key: %d\n", last)
	return nil
}
