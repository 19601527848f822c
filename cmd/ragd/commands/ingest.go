package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/ingestion"
	"github.com/54b3r/ragd/internal/logging"
)

// NewIngestCmd constructs the `ragd ingest` command, which loads a document
// from a file, URL, or stdin and indexes it for one tenant.
func NewIngestCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "ingest [source]",
		Short: "Ingest a document into a tenant's index",
		Long: `Chunk, embed, and index a document for a single tenant.

The source may be a local file path, an http(s) URL, or "-" to read from
stdin. Ingestion is all-or-nothing: on any failure nothing is indexed.

Examples:
  ragd ingest --tenant 4f8a... ./handbook.md
  ragd ingest --tenant 4f8a... https://example.com/policy.html
  cat notes.txt | ragd ingest --tenant 4f8a... -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			d, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer d.close()

			content, metadata, err := ingestion.NewLoader(nil).Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			res, err := d.pipeline.Ingest(ctx, tenantID, content, metadata)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("indexed document %s (%d chunks)\n", res.DocumentID, res.ChunksCreated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID to ingest into (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
