// Package commands defines all Cobra CLI commands for the ragd binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/audit"
	"github.com/54b3r/ragd/internal/config"
	"github.com/54b3r/ragd/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragd",
		Short: "ragd — multi-tenant retrieval-augmented response service",
		Long: `ragd indexes tenant documents and answers questions grounded in them.

Documents are chunked, embedded, and stored per tenant; queries retrieve the
closest chunks and produce an answer that cites its sources. Questions the
indexed documents cannot support are refused rather than guessed at.

Model and embedding providers are selected via environment variables
(MODEL_PROVIDER, EMBEDDING_PROVIDER) or a YAML config file
(~/.ragd/config.yaml). See 'ragd --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragd/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewQueryCmd(),
		NewTenantCmd(),
		NewReindexCmd(),
		NewVersionCmd(),
	)

	return root
}
