package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pathgraph/internal/batch"
	"github.com/rohankatakam/pathgraph/internal/biopax"
	"github.com/rohankatakam/pathgraph/internal/config"
	"github.com/rohankatakam/pathgraph/internal/graph"
	"github.com/rohankatakam/pathgraph/internal/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>...",
	Short: "Load BioPAX element models into the graph",
	Long: `Load one or more BioPAX element models into Neo4j.

Nodes are written before relations, in batches. Entities already known to
the identity cache keep their surrogate key, so re-running a load is a no-op
on the graph.

Examples:
  # Load a release with the default batch profile
  pathgraph load reactome/*.yaml

  # Write every element synchronously
  pathgraph load --batch-size 1 pathway.yaml

  # Count what would be written without touching Neo4j
  pathgraph load --dry-run --xref-filter PubMed pathway.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().Int("batch-size", 0, "Flush threshold for both buffers (overrides --batch-profile)")
	loadCmd.Flags().String("batch-profile", "", "Batch profile: default, small or large")
	loadCmd.Flags().StringSlice("xref-filter", nil, "Xref databases not to materialize (repeatable)")
	loadCmd.Flags().Bool("dry-run", false, "Build against a counting sink instead of Neo4j")
}

func runLoad(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	ctx := context.Background()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if cmd.Flags().Changed("batch-size") {
		cfg.Ingest.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("batch-profile") {
		cfg.Ingest.BatchProfile, _ = cmd.Flags().GetString("batch-profile")
	}
	if cmd.Flags().Changed("xref-filter") {
		cfg.Ingest.XrefFilter, _ = cmd.Flags().GetStringSlice("xref-filter")
	}

	validation := config.ValidationContextLoad
	if dryRun {
		validation = config.ValidationContextDryRun
	}
	if err := cfg.Validate(validation).Err(); err != nil {
		return err
	}
	batchCfg, err := cfg.BatchConfig()
	if err != nil {
		return err
	}

	fmt.Printf("pathgraph load (%d files)\n", len(args))
	if dryRun {
		fmt.Printf("   Mode: dry run\n")
	}
	fmt.Printf("   Batch: %d nodes / %d relations\n", batchCfg.NodeThreshold, batchCfg.RelationThreshold)

	// Decode sources
	fmt.Printf("\n[1/4] Reading source models...\n")
	models, err := biopax.LoadAll(ctx, args)
	if err != nil {
		return err
	}
	elements := 0
	for _, m := range models {
		fmt.Printf("  ✓ %s: %d elements (%s)\n", m.Path, m.Len(), m.Source)
		elements += m.Len()
	}

	// Connect to stores
	fmt.Printf("\n[2/4] Connecting to stores...\n")
	idStore, err := openIdentityStore(ctx, cfg.Identity)
	if err != nil {
		return err
	}
	defer idStore.Close()
	fmt.Printf("  ✓ Identity cache (%s)\n", cfg.Identity.Backend)

	resolver, err := buildResolver(ctx, cfg.Accession)
	if err != nil {
		return err
	}
	defer resolver.Close()
	if cfg.Accession.AliasFile != "" {
		fmt.Printf("  ✓ Alias file (%d aliases)\n", resolver.aliasFile)
	}
	if resolver.table != nil {
		fmt.Printf("  ✓ Accession table (%s, %d aliases)\n", cfg.Accession.Driver, resolver.tableAliases)
	}

	var graphStore graph.Store
	if !dryRun {
		store, err := openGraphStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		graphStore = store
		fmt.Printf("  ✓ Neo4j (%s)\n", cfg.Neo4j.URI)
	}

	// Build
	fmt.Printf("\n[3/4] Building graph from %d elements...\n", elements)
	loader := ingest.NewLoader(idStore, graphStore, ingest.LoaderOptions{
		Batch:      batchCfg,
		Resolver:   resolver,
		XrefFilter: cfg.Ingest.XrefFilter,
		Logger:     logger,
	})
	result, err := loader.Run(ctx, models)
	if err != nil {
		return err
	}

	fmt.Printf("\n[4/4] Summary\n")
	printReport(result)
	if result.DryRun != nil {
		printDryRun(result.DryRun)
	}

	fmt.Printf("\n✓ Load complete in %v\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func printReport(result *ingest.Result) {
	r := result.Report
	fmt.Printf("  Job: %s\n", r.JobID)
	fmt.Printf("  Nodes: %d created, %d reused, %d elements skipped\n", r.NodesCreated, r.NodesReused, r.ElementsSkipped)
	fmt.Printf("  Relations: %d created, %d dropped\n", r.RelationsCreated, r.RelationsDropped)
	for _, reason := range sortedKeys(r.DropReasons) {
		fmt.Printf("    - %s: %d\n", reason, r.DropReasons[reason])
	}
	for _, p := range r.Phases {
		fmt.Printf("  Phase %s: %d elements in %v (%.0f/s)\n", p.Name, p.Elements, p.Duration.Round(time.Millisecond), p.Throughput())
	}
	fmt.Printf("  Flushes: %d node batches, %d relation batches\n", result.Batch.NodeFlushes, result.Batch.RelationFlushes)
	fmt.Printf("  Identity cache: %d hits, %d allocated\n", result.Cache.Hits, result.Cache.Allocated)
	fmt.Printf("  Last surrogate key: %d\n", r.LastSurrogateKey)
}

func printDryRun(sink *batch.CountingSink) {
	counts := make(map[string]int, len(sink.NodesByKind)+len(sink.RelsByKind))
	for kind, n := range sink.NodesByKind {
		counts[kind.String()] = n
	}
	for kind, n := range sink.RelsByKind {
		counts[string(kind)] = n
	}

	fmt.Printf("  Would write %d nodes and %d relations:\n", sink.Nodes, sink.Relations)
	for _, kind := range sortedKeys(counts) {
		fmt.Printf("    - %s: %d\n", kind, counts[kind])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
