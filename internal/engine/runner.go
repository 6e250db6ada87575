package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vireodb/vireo/internal/dialect"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/script"
	"github.com/vireodb/vireo/internal/sqlgen"
	"github.com/vireodb/vireo/internal/verr"
)

// lockReleaseTimeout bounds the deferred lock release, which runs on a
// fresh context because the run's context may already be cancelled.
const lockReleaseTimeout = 5 * time.Second

// Migration is one unit of schema change. Either Operations or Script
// is set: structured operations go through the batch generator, raw
// scripts through the separator splitter.
type Migration struct {
	ID         string
	Name       string
	Operations []ops.Operation
	Script     string
}

// Batches renders the migration into executable SQL batches.
func (m *Migration) Batches(d dialect.Dialect) ([]string, error) {
	if m.Script != "" {
		return script.Split(m.Script), nil
	}
	return sqlgen.Incremental(m.Operations, d)
}

// Runner applies pending migrations against one database under the
// advisory lock. Each migration runs in its own transaction together
// with its history row, so a failure leaves the ledger and the schema
// consistent.
type Runner struct {
	DB             *sql.DB
	Dialect        dialect.Dialect
	ProductVersion string
	LockScope      string
	LockTimeout    time.Duration
}

// RunResult summarizes one runner invocation.
type RunResult struct {
	RunID   string
	Applied []string
	Skipped []string
}

// RenderedMigration is one migration's generated script.
type RenderedMigration struct {
	ID     string
	Name   string
	Script string
}

// Unapplied filters the catalog down to migrations whose id is not in
// the ledger, preserving catalog order.
func Unapplied(catalog []Migration, applied map[string]struct{}) []Migration {
	var pending []Migration
	for _, m := range catalog {
		if _, ok := applied[m.ID]; !ok {
			pending = append(pending, m)
		}
	}
	return pending
}

// Run applies every catalog migration not yet in the history ledger.
// Already-applied migrations are skipped, never re-run.
func (r *Runner) Run(ctx context.Context, catalog []Migration) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString()}
	log := slog.With("run_id", result.RunID, "dialect", r.Dialect.Name())

	session, err := NewSession(ctx, r.DB)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	handle, err := AcquireLock(ctx, session, r.Dialect, r.LockScope, r.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		if err := handle.Release(releaseCtx); err != nil {
			log.Warn("failed to release migration lock", "error", err)
		}
	}()

	history := NewHistory(session, r.Dialect)
	if err := history.EnsureCreated(ctx); err != nil {
		return nil, err
	}

	applied, err := history.AppliedIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range catalog {
		if _, ok := applied[m.ID]; ok {
			result.Skipped = append(result.Skipped, m.ID)
			continue
		}
		log.Info("applying migration", "migration", m.ID, "name", m.Name)
		if err := r.applyOne(ctx, session, history, m); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, m.ID)
	}

	log.Info("migration run complete",
		"applied", len(result.Applied), "skipped", len(result.Skipped))
	return result, nil
}

// applyOne executes one migration and its ledger row in a single
// transaction. Any batch failure rolls the whole migration back.
func (r *Runner) applyOne(ctx context.Context, session *Session, history *History, m Migration) error {
	batches, err := m.Batches(r.Dialect)
	if err != nil {
		return verr.Wrap(verr.ErrMigration, err, "failed to generate migration batches").
			WithMigration(m.ID)
	}

	if err := session.Begin(ctx); err != nil {
		return verr.Wrap(verr.ErrMigration, err, "failed to begin migration transaction").
			WithMigration(m.ID)
	}

	for _, batch := range batches {
		if err := session.Exec(ctx, batch); err != nil {
			session.Rollback()
			return verr.Wrap(verr.ErrMigration, err, "migration batch failed").
				WithMigration(m.ID)
		}
	}

	if err := history.Insert(ctx, m.ID, m.Name, r.ProductVersion, time.Now()); err != nil {
		session.Rollback()
		return verr.Wrap(verr.ErrMigration, err, "failed to record migration").
			WithMigration(m.ID)
	}

	if err := session.Commit(); err != nil {
		return verr.Wrap(verr.ErrMigration, err, "failed to commit migration").
			WithMigration(m.ID)
	}
	return nil
}

// DryRun renders every catalog migration without touching the
// database, in catalog order.
func (r *Runner) DryRun(catalog []Migration) ([]RenderedMigration, error) {
	rendered := make([]RenderedMigration, 0, len(catalog))
	for _, m := range catalog {
		batches, err := m.Batches(r.Dialect)
		if err != nil {
			return nil, verr.Wrap(verr.ErrMigration, err, "failed to render migration").
				WithMigration(m.ID)
		}
		rendered = append(rendered, RenderedMigration{
			ID:     m.ID,
			Name:   m.Name,
			Script: sqlgen.Render(batches, r.Dialect),
		})
	}
	return rendered, nil
}
