package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vireodb/vireo/internal/catalog"
	"github.com/vireodb/vireo/internal/chain"
	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/ui"
)

// statusCmd reports applied/pending migrations and catalog drift.
func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
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

			db, err := cfg.openDB(d)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			session, err := engine.NewSession(ctx, db)
			if err != nil {
				return err
			}
			defer session.Close()

			history := engine.NewHistory(session, d)
			if err := history.EnsureCreated(ctx); err != nil {
				return err
			}
			applied, err := history.AppliedIDs(ctx)
			if err != nil {
				return err
			}
			pending := engine.Unapplied(migrations, applied)

			fmt.Println(ui.Section("Migrations"))
			for _, m := range migrations {
				if _, ok := applied[m.ID]; ok {
					fmt.Println(ui.Success(m.ID))
				} else {
					fmt.Println(ui.Dim("pending " + m.ID))
				}
			}
			fmt.Println(ui.KeyValue("pending", ui.Count(len(pending), "migration", "migrations")))

			drift, err := chain.Verify(cfg.MigrationsDir, cfg.LockPath)
			if err != nil {
				return err
			}
			if !drift.LockExists {
				fmt.Println(ui.Warning("no fingerprint lock file; run vireo migrate to create one"))
			} else if !drift.Clean() {
				printDrift(drift)
				fmt.Println(ui.Warning("catalog was modified after fingerprinting"))
			} else if !drift.RootMatch {
				fmt.Println(ui.Dim(ui.Count(len(drift.New), "migration", "migrations") + " not yet fingerprinted; vireo migrate will refresh the lock file"))
			}
			return nil
		},
	}
	return cmd
}
