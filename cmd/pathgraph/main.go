package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/pathgraph/internal/config"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
	logOut  *logging.Logger
)

// Exit codes
const (
	exitError  = 1 // recoverable or unclassified failure
	exitConfig = 2 // configuration is missing or invalid
	exitFatal  = 3 // a store or source failed and the job stopped
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case perrors.GetType(err) == perrors.ErrorTypeConfig:
		return exitConfig
	case perrors.IsFatal(err):
		return exitFatal
	default:
		return exitError
	}
}

var rootCmd = &cobra.Command{
	Use:   "pathgraph",
	Short: "Load BioPAX pathway models into a Neo4j property graph",
	Long: `pathgraph reads BioPAX element models and merges them into a Neo4j
property graph. Entities keep one surrogate key across files and jobs, so
loading the same release twice leaves the graph unchanged.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return perrors.Wrap(err, perrors.ErrorTypeConfig, perrors.SeverityCritical, "failed to load config")
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		// Initialize logger
		logOut, err = logging.New(logging.Config{
			Level:      cfg.Log.Level,
			JSONFormat: cfg.Log.Format == "json",
			OutputFile: cfg.Log.File,
			MaxSize:    int64(cfg.Log.MaxSizeMB) * 1024 * 1024,
		})
		if err != nil {
			return err
		}
		logger = logOut.Logger
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			logOut.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .pathgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`pathgraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(initSchemaCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(accessionCmd)
}
