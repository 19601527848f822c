// Command ragd is the entry point for the ragd retrieval service.
// It provides a CLI interface (via Cobra) for tenant administration,
// document ingestion, and query resolution, plus an HTTP server mode.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/54b3r/ragd/cmd/ragd/commands"
)

func main() {
	// Load .env if present — provider credentials live there in development.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
