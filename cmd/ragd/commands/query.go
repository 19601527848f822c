package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/logging"
)

// NewQueryCmd constructs the `ragd query` command, which resolves a single
// question against a tenant's index and prints the answer with its sources.
func NewQueryCmd() *cobra.Command {
	var tenantID string
	var topK int

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question against a tenant's indexed documents",
		Long: `Resolve a question against one tenant's indexed documents.

The answer is grounded in retrieved chunks and lists the documents it cites.
When no indexed content supports the question, ragd refuses instead of
guessing.

Examples:
  ragd query --tenant 4f8a... "what is the refund policy?"
  ragd query --tenant 4f8a... --top-k 10 "summarise the onboarding steps"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			d, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer d.close()

			result, err := d.pipeline.Query(ctx, tenantID, args[0], topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			fmt.Println(result.Answer)
			if result.Cached {
				fmt.Println("\n(served from cache)")
			}
			if len(result.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range result.Sources {
					fmt.Printf("  %s (chunk %s, similarity %.3f)\n",
						src.DocumentID, src.ChunkID, src.SimilarityScore)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant ID to query (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default from config)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
