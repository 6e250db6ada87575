// Package vireo is the embedding API for the vireo schema modeling and
// migration engine. It wraps entity loading, bootstrap script
// generation, and migration execution behind one client so host
// applications can run migrations at startup without shelling out to
// the CLI.
package vireo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vireodb/vireo/internal/catalog"
	"github.com/vireodb/vireo/internal/dialect"
	"github.com/vireodb/vireo/internal/engine"
	"github.com/vireodb/vireo/internal/entity"
	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/sqlgen"
)

// Client binds a dialect, an entity directory, and a migration catalog.
type Client struct {
	dialect        dialect.Dialect
	db             *sql.DB
	entitiesDir    string
	migrationsDir  string
	defaultSchema  string
	productVersion string
	lockTimeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithDB supplies the database handle for Migrate and Status.
func WithDB(db *sql.DB) Option {
	return func(c *Client) { c.db = db }
}

// WithEntitiesDir sets the entity definition directory.
func WithEntitiesDir(dir string) Option {
	return func(c *Client) { c.entitiesDir = dir }
}

// WithMigrationsDir sets the migration catalog directory.
func WithMigrationsDir(dir string) Option {
	return func(c *Client) { c.migrationsDir = dir }
}

// WithDefaultSchema sets the schema for entities without one.
func WithDefaultSchema(schema string) Option {
	return func(c *Client) { c.defaultSchema = schema }
}

// WithProductVersion sets the version recorded in the history ledger.
func WithProductVersion(v string) Option {
	return func(c *Client) { c.productVersion = v }
}

// WithLockTimeout bounds the wait for the migration advisory lock.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Client) { c.lockTimeout = d }
}

// New creates a client for the named dialect (sqlserver or postgres).
func New(dialectName string, opts ...Option) (*Client, error) {
	d := dialect.Get(dialectName)
	if d == nil {
		return nil, fmt.Errorf("unknown dialect %q (supported: %v)", dialectName, dialect.Names())
	}
	c := &Client{
		dialect:       d,
		entitiesDir:   "entities",
		migrationsDir: "migrations",
		lockTimeout:   engine.DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BootstrapSQL renders the idempotent bootstrap script from the entity
// definitions.
func (c *Client) BootstrapSQL() (string, error) {
	m, err := c.buildModel()
	if err != nil {
		return "", err
	}
	batches, err := sqlgen.Bootstrap(m, c.dialect)
	if err != nil {
		return "", err
	}
	return sqlgen.Render(batches, c.dialect), nil
}

// MigrationSQL renders every catalog migration without executing it,
// keyed by migration id in catalog order.
func (c *Client) MigrationSQL() ([]engine.RenderedMigration, error) {
	migrations, err := catalog.Load(c.migrationsDir)
	if err != nil {
		return nil, err
	}
	runner := &engine.Runner{Dialect: c.dialect}
	return runner.DryRun(migrations)
}

// Migrate applies every pending catalog migration. Requires WithDB.
func (c *Client) Migrate(ctx context.Context) (*engine.RunResult, error) {
	if c.db == nil {
		return nil, fmt.Errorf("no database configured: use WithDB")
	}
	migrations, err := catalog.Load(c.migrationsDir)
	if err != nil {
		return nil, err
	}
	runner := &engine.Runner{
		DB:             c.db,
		Dialect:        c.dialect,
		ProductVersion: c.productVersion,
		LockScope:      engine.DefaultLockScope,
		LockTimeout:    c.lockTimeout,
	}
	return runner.Run(ctx, migrations)
}

// Pending returns the ids of catalog migrations not yet in the history
// ledger. Requires WithDB.
func (c *Client) Pending(ctx context.Context) ([]string, error) {
	if c.db == nil {
		return nil, fmt.Errorf("no database configured: use WithDB")
	}
	migrations, err := catalog.Load(c.migrationsDir)
	if err != nil {
		return nil, err
	}

	session, err := engine.NewSession(ctx, c.db)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	history := engine.NewHistory(session, c.dialect)
	if err := history.EnsureCreated(ctx); err != nil {
		return nil, err
	}
	applied, err := history.AppliedIDs(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, m := range engine.Unapplied(migrations, applied) {
		pending = append(pending, m.ID)
	}
	return pending, nil
}

// buildModel loads and builds the schema model from the entity files.
func (c *Client) buildModel() (*model.SchemaModel, error) {
	dirEntries, err := os.ReadDir(c.entitiesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read entities directory %s: %w", c.entitiesDir, err)
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
		data, err := os.ReadFile(filepath.Join(c.entitiesDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		fileDefs, err := entity.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defs = append(defs, fileDefs...)
	}

	return entity.Build(defs, entity.Options{DefaultSchema: c.defaultSchema})
}
