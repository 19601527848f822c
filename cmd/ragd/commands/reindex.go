package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/logging"
)

// NewReindexCmd constructs the `ragd reindex` command, which replays a
// tenant's stored chunks into the external vector backend. Useful after a
// Qdrant collection is rebuilt or provisioned for existing data.
func NewReindexCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-sync a tenant's chunks into the external vector backend",
		Long: `Replay all stored chunks for one tenant into the external vector backend.

Requires VECTOR_BACKEND=qdrant; the embedded SQLite backend searches the
store directly and never needs a reindex.

Examples:
  VECTOR_BACKEND=qdrant ragd reindex --tenant 4f8a...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			d, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			defer d.close()

			n, err := d.pipeline.Reindex(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}

			fmt.Printf("reindexed %d chunks for tenant %s\n", n, tenantID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID to reindex (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
