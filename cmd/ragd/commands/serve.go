package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/server"
	"github.com/54b3r/ragd/internal/tracing"
)

// NewServeCmd constructs the `ragd serve` command, which starts the HTTP
// server exposing ingestion, query resolution, and tenant administration.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragd HTTP server",
		Long: `Start the ragd HTTP server on localhost.

The server exposes a REST API for document ingestion (POST /api/ingest),
query resolution (POST /api/query), and tenant administration
(POST/GET /api/tenants), plus /api/health, /api/ready, and /metrics.

Examples:
  ragd serve
  ragd serve --port 9090
  VECTOR_BACKEND=qdrant CACHE_BACKEND=redis ragd serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			d, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer d.close()

			srv, err := server.New(d.pipeline, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: d.pingers,
				APIKey:  os.Getenv("RAGD_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
