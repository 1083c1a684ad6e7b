package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/config"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

var accessionCmd = &cobra.Command{
	Use:   "accession",
	Short: "Manage the protein accession table",
}

var accessionImportCmd = &cobra.Command{
	Use:   "import <alias-file>...",
	Short: "Import alias to accession mappings into the accession table",
	Long: `Import tab-separated alias files into the configured accession table.

Each line holds an alias (gene symbol, secondary accession, name) and the
UniProt accession it maps to. Aliases already in the table keep their
accession.

Examples:
  ACCESSION_DRIVER=sqlite3 ACCESSION_DSN=accessions.db \
    pathgraph accession import hgnc_uniprot.tsv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAccessionImport,
}

func init() {
	accessionCmd.AddCommand(accessionImportCmd)
}

func runAccessionImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := cfg.Validate(config.ValidationContextImport).Err(); err != nil {
		return err
	}

	table, err := openAccessionTable(ctx, cfg.Accession)
	if err != nil {
		return err
	}
	defer table.Close()

	before, err := table.Count(ctx)
	if err != nil {
		return perrors.DatabaseError(err, "failed to count accession aliases")
	}

	read := 0
	for _, path := range args {
		aliases, err := accession.LoadAliasFile(path)
		if err != nil {
			return perrors.SourceErrorf(err, "failed to read alias file %s", path)
		}
		if err := importAliases(ctx, table, aliases); err != nil {
			return err
		}
		read += len(aliases)
		fmt.Printf("  ✓ %s: %d aliases\n", path, len(aliases))
	}

	after, err := table.Count(ctx)
	if err != nil {
		return perrors.DatabaseError(err, "failed to count accession aliases")
	}

	logger.WithFields(logrus.Fields{
		"read":     read,
		"inserted": after - before,
		"total":    after,
	}).Info("Accession import completed")

	fmt.Printf("\nAccession table (%s)\n", cfg.Accession.Driver)
	fmt.Printf("  Read:     %d\n", read)
	fmt.Printf("  Inserted: %d\n", after-before)
	fmt.Printf("  Total:    %d\n", after)
	return nil
}

// importAliases writes every alias in sorted order
func importAliases(ctx context.Context, table *accession.SQLResolver, aliases accession.StaticResolver) error {
	for _, alias := range aliases.Aliases() {
		if err := table.Put(ctx, alias, aliases[alias]); err != nil {
			return perrors.DatabaseError(err, "accession import failed")
		}
	}
	return nil
}
