// Package catalog loads the migration catalog from a directory.
// Structured migrations are NNN_name.yaml files holding an operation
// list, scripted migrations are NNN_name.sql files executed as
// separator-split batches. Catalog order is lexical filename order,
// which the numeric prefix convention makes chronological.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/verr"
)

// DefaultDir is the conventional migrations directory.
const DefaultDir = "migrations"

// Load reads every migration file in dir in lexical order. A missing
// directory is an empty catalog.
func Load(dir string) ([]engine.Migration, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		switch filepath.Ext(de.Name()) {
		case ".yaml", ".yml", ".sql":
			names = append(names, de.Name())
		}
	}
	slices.Sort(names)

	catalog := make([]engine.Migration, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		m, err := loadFile(dir, name)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[m.ID]; dup {
			return nil, verr.Newf(verr.ErrMigration, "duplicate migration id across %s and %s", prev, name).
				WithMigration(m.ID)
		}
		seen[m.ID] = name
		catalog = append(catalog, m)
	}
	return catalog, nil
}

func loadFile(dir, filename string) (engine.Migration, error) {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return engine.Migration{}, fmt.Errorf("failed to read migration %s: %w", filename, err)
	}

	id, displayName := splitFilename(filename)
	m := engine.Migration{ID: id, Name: displayName}

	if filepath.Ext(filename) == ".sql" {
		m.Script = string(data)
		return m, nil
	}

	operations, err := ops.Decode(data)
	if err != nil {
		return engine.Migration{}, verr.Wrapf(verr.ErrMigration, err, "failed to decode migration %s", filename).
			WithMigration(id)
	}
	m.Operations = operations
	return m, nil
}

// splitFilename derives the migration id and display name from the
// filename: "004_add_invoices.yaml" has id "004_add_invoices" and name
// "add_invoices".
func splitFilename(filename string) (id, name string) {
	id = strings.TrimSuffix(filename, filepath.Ext(filename))
	name = id
	if _, rest, ok := strings.Cut(id, "_"); ok && rest != "" {
		name = rest
	}
	return id, name
}
