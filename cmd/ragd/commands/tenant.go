package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

// NewTenantCmd constructs the `ragd tenant` command group for tenant
// administration. Tenant commands talk to the store directly, so they work
// without any model provider configured.
func NewTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long: `Create and list tenants.

Every document and query is scoped to a tenant; ingestion and queries
require an existing tenant ID.

Examples:
  ragd tenant create "Acme Corp"
  ragd tenant list`,
	}

	cmd.AddCommand(newTenantCreateCmd(), newTenantListCmd())

	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("tenant: name must not be empty")
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("tenant: %w", err)
			}
			defer func() { _ = st.Close() }()

			t := rag.Tenant{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
			if err := st.CreateTenant(ctx, t); err != nil {
				return fmt.Errorf("tenant: %w", err)
			}

			fmt.Printf("created tenant %s (%s)\n", t.ID, t.Name)
			return nil
		},
	}
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("tenant: %w", err)
			}
			defer func() { _ = st.Close() }()

			tenants, err := st.ListTenants(ctx)
			if err != nil {
				return fmt.Errorf("tenant: %w", err)
			}
			if len(tenants) == 0 {
				fmt.Println("no tenants")
				return nil
			}
			for _, t := range tenants {
				fmt.Printf("%s  %s  (created %s)\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
