package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/ui"
)

// historyCmd prints the applied-migration ledger.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the applied-migration ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := cfg.resolveDialect()
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
			applied, err := history.Applied(ctx)
			if err != nil {
				return err
			}

			fmt.Println(ui.Section("Applied migrations"))
			if len(applied) == 0 {
				fmt.Println(ui.Dim("none"))
				return nil
			}
			for _, m := range applied {
				fmt.Printf("%s  %s  %s\n", m.ID, ui.Dim(m.AppliedAtUtc), ui.Dim("v"+m.ProductVersion))
			}
			return nil
		},
	}
	return cmd
}
