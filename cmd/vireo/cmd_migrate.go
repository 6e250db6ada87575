package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vireodb/vireo/internal/catalog"
	"github.com/vireodb/vireo/internal/chain"
	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/ui"
)

// migrateCmd applies pending migrations under the advisory lock.
func migrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long: `Loads the migration catalog, diffs it against the applied-migration
ledger, and applies every pending migration in its own transaction.
Migrations already edited after being fingerprinted abort the run.`,
		Example: `  vireo migrate
  vireo migrate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := cfg.resolveDialect()
			if err != nil {
				return err
			}

			migrations, err := catalog.Load(cfg.MigrationsDir)
			if err != nil {
				return err
			}
			if len(migrations) == 0 {
				fmt.Println(ui.Dim("no migrations in " + cfg.MigrationsDir))
				return nil
			}

			runner := &engine.Runner{
				Dialect:        d,
				ProductVersion: version,
				LockScope:      engine.DefaultLockScope,
				LockTimeout:    engine.DefaultLockTimeout,
			}

			if dryRun {
				rendered, err := runner.DryRun(migrations)
				if err != nil {
					return err
				}
				for _, r := range rendered {
					fmt.Println(ui.Section("-- " + r.ID))
					fmt.Println(r.Script)
				}
				return nil
			}

			drift, err := chain.Verify(cfg.MigrationsDir, cfg.LockPath)
			if err != nil {
				return err
			}
			if !drift.Clean() {
				printDrift(drift)
				return fmt.Errorf("migration catalog was modified after fingerprinting; refusing to migrate")
			}

			db, err := cfg.openDB(d)
			if err != nil {
				return err
			}
			defer db.Close()
			runner.DB = db

			result, err := runner.Run(cmd.Context(), migrations)
			if result != nil {
				for _, id := range result.Applied {
					fmt.Println(ui.Success("applied " + id))
				}
			}
			if err != nil {
				return err
			}

			// Refresh the fingerprint so newly added migrations are covered.
			fp, err := chain.Compute(cfg.MigrationsDir)
			if err != nil {
				return err
			}
			if err := chain.Write(cfg.LockPath, fp); err != nil {
				return err
			}

			fmt.Println(ui.KeyValue("applied", ui.Count(len(result.Applied), "migration", "migrations")))
			fmt.Println(ui.KeyValue("skipped", ui.Count(len(result.Skipped), "migration", "migrations")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print migration SQL without executing")
	return cmd
}

func printDrift(drift *chain.Drift) {
	for _, f := range drift.Modified {
		fmt.Println(ui.Error("modified after fingerprinting: " + f))
	}
	for _, f := range drift.Removed {
		fmt.Println(ui.Error("removed after fingerprinting: " + f))
	}
	for _, f := range drift.New {
		fmt.Println(ui.Dim("new: " + f))
	}
}
