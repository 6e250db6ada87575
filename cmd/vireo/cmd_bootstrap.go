package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/sqlgen"
	"github.com/vireodb/vireo/internal/ui"
)

// bootstrapCmd executes the generated bootstrap script against the
// database. Every batch is existence-guarded, so rerunning against a
// partially provisioned database only fills the gaps.
func bootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the full schema against the database",
		Long: `Builds the schema model from the entity definitions and executes the
bootstrap script. All statements are existence-guarded and additive, so
the command is safe to rerun.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := cfg.resolveDialect()
			if err != nil {
				return err
			}

			m, _, err := loadEntities(cfg)
			if err != nil {
				return err
			}
			batches, err := sqlgen.Bootstrap(m, d)
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

			handle, err := engine.AcquireLock(ctx, session, d, engine.DefaultLockScope, engine.DefaultLockTimeout)
			if err != nil {
				return err
			}
			defer func() {
				if err := handle.Release(context.Background()); err != nil {
					fmt.Println(ui.Warning("failed to release lock: " + err.Error()))
				}
			}()

			// Guarded batches run outside a transaction: CREATE SCHEMA and
			// friends must see each other's effects across batches.
			for _, batch := range batches {
				if err := session.Exec(ctx, batch); err != nil {
					return err
				}
			}

			fmt.Println(ui.Success(fmt.Sprintf("bootstrap complete: %s executed", ui.Count(len(batches), "batch", "batches"))))
			return nil
		},
	}
	return cmd
}
