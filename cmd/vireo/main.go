// Package main provides the vireo CLI, a schema modeling and
// migration tool. Entity definitions in YAML become a relational
// schema model; the model renders to an idempotent bootstrap script,
// and incremental migrations apply through a locked, ledgered runner.
//
// Usage:
//
//	vireo gen                    # Render the bootstrap script from entity files
//	vireo bootstrap              # Execute the bootstrap script against the database
//	vireo migrate                # Apply pending migrations
//	vireo migrate --dry-run      # Print migration SQL without executing
//	vireo status                 # Show applied/pending migrations and catalog drift
//	vireo history                # Show the applied-migration ledger
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Database drivers
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// Global flags
var (
	databaseURL string
	configFile  string
	dialectName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vireo",
		Short:         "Schema modeling and migration tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&databaseURL, "database-url", "d", "", "Database connection URL")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "vireo.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "", "SQL dialect (sqlserver, postgres)")

	rootCmd.AddCommand(
		genCmd(),
		bootstrapCmd(),
		migrateCmd(),
		statusCmd(),
		historyCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
