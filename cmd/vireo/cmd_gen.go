package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vireodb/vireo/internal/entity"
	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/sqlgen"
	"github.com/vireodb/vireo/internal/ui"
)

// genCmd renders the bootstrap script from the entity definitions.
func genCmd() *cobra.Command {
	var outFile string
	var watch bool

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Render the bootstrap script from entity definitions",
		Long: `Reads every entity definition file in the entities directory, builds
the schema model, and renders the idempotent bootstrap script for the
configured dialect.`,
		Example: `  vireo gen --dialect sqlserver -o bootstrap.sql
  vireo gen --dialect postgres --watch -o bootstrap.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := cfg.resolveDialect()
			if err != nil {
				return err
			}

			generate := func() error {
				m, files, err := loadEntities(cfg)
				if err != nil {
					return err
				}
				batches, err := sqlgen.Bootstrap(m, d)
				if err != nil {
					return err
				}
				script := sqlgen.Render(batches, d)

				if outFile == "" {
					fmt.Print(script)
					return nil
				}
				if err := os.WriteFile(outFile, []byte(script), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", outFile, err)
				}
				fmt.Println(ui.Success(fmt.Sprintf("wrote %s from %s", outFile, ui.Count(files, "entity file", "entity files"))))
				return nil
			}

			if err := generate(); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchEntities(cfg.EntitiesDir, generate)
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate when entity files change")
	return cmd
}

// loadEntities parses every entity file in the entities directory and
// builds the schema model. Files load in sorted order so duplicate
// detection is deterministic.
func loadEntities(cfg *Config) (*model.SchemaModel, int, error) {
	dirEntries, err := os.ReadDir(cfg.EntitiesDir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read entities directory %s: %w", cfg.EntitiesDir, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if ext := filepath.Ext(de.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)

	var defs []*entity.Def
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(cfg.EntitiesDir, name))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		fileDefs, err := entity.Parse(data)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", name, err)
		}
		defs = append(defs, fileDefs...)
	}

	m, err := entity.Build(defs, entity.Options{DefaultSchema: cfg.DefaultSchema})
	if err != nil {
		return nil, 0, err
	}
	return m, len(names), nil
}

// watchEntities reruns generate on every write, create, or remove in the
// entities directory until interrupted.
func watchEntities(dir string, generate func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Println(ui.Dim("watching " + dir + " (ctrl-c to stop)"))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				if err := generate(); err != nil {
					fmt.Println(ui.Error(err.Error()))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Println(ui.Warning("watcher: " + err.Error()))
		}
	}
}
