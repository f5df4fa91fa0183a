// Package cmd provides the agentsdb CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/agdbconfig"
	"github.com/agentsdb/agentsdb-go/internal/agdblog"
	"github.com/agentsdb/agentsdb-go/pkg/version"
)

// Global flags, bound on the root command and read by every subcommand.
var (
	rootDir      string
	jsonOutput   bool
	embedderName string
	embedDim     uint32
	useIndex     bool
	assumeYes    bool
	debugLogging bool
)

var (
	cfg            agdbconfig.Config
	logger         *slog.Logger
	loggingCleanup func()
)

// NewRootCmd creates the root command for the agentsdb CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agentsdb",
		Short:   "Layered, content-addressed vector knowledge store",
		Version: version.Version,
		Long: `agentsdb manages a directory of layered vector knowledge-store
files (AGENTS.db, AGENTS.user.db, AGENTS.delta.db, AGENTS.local.db):
collecting content, embedding it, searching across layers with
deterministic override resolution, and promoting/diffing/exporting
between them.`,
	}
	cmd.SetVersionTemplate("agentsdb version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory holding the layer files")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().StringVar(&embedderName, "embedder", "", "Embedder backend (hash, ollama); defaults to config/env")
	cmd.PersistentFlags().Uint32Var(&embedDim, "dim", 0, "Embedding dimension; defaults to config/env")
	cmd.PersistentFlags().BoolVar(&useIndex, "use-index", true, "Use the .agix sidecar index when present and coherent")
	cmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Assume yes for interactive confirmations")
	cmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug-level file logging")

	cmd.PersistentPreRunE = setupRun
	cmd.PersistentPostRunE = teardownRun

	cmd.AddCommand(newCollectCmd())
	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newWriteCmd())
	cmd.AddCommand(newAppendCmd())
	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newReembedCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newSmashCmd())
	cmd.AddCommand(newDestroyCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newWebCmd())

	return cmd
}

func setupRun(cmd *cobra.Command, _ []string) error {
	loaded, err := agdbconfig.Load(rootDir)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("root") && loaded.Root != "" {
		rootDir = loaded.Root
	}
	if embedderName == "" {
		embedderName = loaded.Embedder
	}
	if embedDim == 0 {
		embedDim = loaded.Dim
	}
	if !cmd.Flags().Changed("use-index") {
		useIndex = loaded.UseIndex
	}
	cfg = loaded

	logCfg := agdblog.DefaultConfig()
	if debugLogging {
		logCfg.Level = "debug"
	}
	l, cleanup, err := agdblog.Setup(logCfg)
	if err != nil {
		return err
	}
	logger = l
	loggingCleanup = cleanup
	return nil
}

func teardownRun(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
