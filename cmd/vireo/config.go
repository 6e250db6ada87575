package main

import (
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vireodb/vireo/internal/dialect"
)

// Config represents the vireo.yaml configuration file.
type Config struct {
	DatabaseURL   string `yaml:"database_url"`
	Dialect       string `yaml:"dialect"`
	EntitiesDir   string `yaml:"entities_dir"`
	MigrationsDir string `yaml:"migrations_dir"`
	DefaultSchema string `yaml:"default_schema"`
	LockPath      string `yaml:"lock_path"`
}

// loadConfig loads configuration from file, env vars, and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults.
func loadConfig() (*Config, error) {
	cfg := &Config{
		EntitiesDir:   "./entities",
		MigrationsDir: "./migrations",
		LockPath:      "vireo.lock",
	}

	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		// Handle env var interpolation in database_url
		cfg.DatabaseURL = os.Expand(cfg.DatabaseURL, os.Getenv)
	}

	if envURL := os.Getenv("DATABASE_URL"); envURL != "" {
		cfg.DatabaseURL = envURL
	}
	if envDialect := os.Getenv("VIREO_DIALECT"); envDialect != "" {
		cfg.Dialect = envDialect
	}
	if envEntities := os.Getenv("VIREO_ENTITIES_DIR"); envEntities != "" {
		cfg.EntitiesDir = envEntities
	}
	if envMigrations := os.Getenv("VIREO_MIGRATIONS_DIR"); envMigrations != "" {
		cfg.MigrationsDir = envMigrations
	}

	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if dialectName != "" {
		cfg.Dialect = dialectName
	}

	return cfg, nil
}

// resolveDialect returns the configured dialect or an error naming the
// supported ones.
func (c *Config) resolveDialect() (dialect.Dialect, error) {
	if c.Dialect == "" {
		return nil, fmt.Errorf("no dialect configured: set dialect in %s, VIREO_DIALECT, or --dialect (supported: %v)",
			configFile, dialect.Names())
	}
	d := dialect.Get(c.Dialect)
	if d == nil {
		return nil, fmt.Errorf("unknown dialect %q (supported: %v)", c.Dialect, dialect.Names())
	}
	return d, nil
}

// openDB opens the configured database. The driver name follows the
// dialect since connection URLs alone do not disambiguate.
func (c *Config) openDB(d dialect.Dialect) (*sql.DB, error) {
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("no database URL configured: set database_url in %s, DATABASE_URL, or --database-url", configFile)
	}
	driver := map[string]string{
		"sqlserver": "sqlserver",
		"postgres":  "postgres",
	}[d.Name()]
	if driver == "" {
		return nil, fmt.Errorf("dialect %q has no registered driver", d.Name())
	}
	db, err := sql.Open(driver, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
