package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pathgraph/internal/config"
)

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create surrogate key indexes in Neo4j",
	Long: `Create one surrogate key index per node label plus the uniqueness
constraint on the loader configuration record. Safe to run repeatedly;
load runs it before every job.`,
	Args: cobra.NoArgs,
	RunE: runInitSchema,
}

func runInitSchema(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := cfg.Validate(config.ValidationContextSchema).Err(); err != nil {
		return err
	}

	store, err := openGraphStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	last, err := store.LastSurrogateKey(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Schema ready on %s (last surrogate key %d)\n", cfg.Neo4j.URI, last)
	return nil
}
