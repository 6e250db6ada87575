// Package engine implements the migration execution protocol: a
// Session owning one connection and at most one transaction, the
// append-only history ledger, the advisory lock serializing runs, and
// the Runner orchestrating them.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/vireodb/vireo/internal/verr"
)

// Session exclusively owns one database connection and at most one
// active transaction. All statement execution goes through the active
// transaction when there is one, so every caller holding the Session
// shares it. The transaction is always passed explicitly through the
// Session handle, never resolved from ambient state.
type Session struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// NewSession pins one connection from the pool. Close returns it.
func NewSession(ctx context.Context, db *sql.DB) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, verr.Wrap(verr.ErrSQLExecution, err, "failed to obtain database connection")
	}
	return &Session{conn: conn}, nil
}

// InTx reports whether a transaction is active.
func (s *Session) InTx() bool {
	return s.tx != nil
}

// Begin starts a transaction. Beginning while one is already active is
// a caller error, not a nested transaction.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return verr.New(verr.ErrTxActive, "transaction already active on session")
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return verr.Wrap(verr.ErrSQLTransaction, err, "failed to begin transaction")
	}
	s.tx = tx
	return nil
}

// Commit commits the active transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return verr.New(verr.ErrSQLTransaction, "no active transaction to commit")
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return verr.Wrap(verr.ErrSQLTransaction, err, "failed to commit transaction")
	}
	return nil
}

// Rollback aborts the active transaction. Secondary failures during
// rollback (for example a connection already torn down by the original
// failure) are logged and suppressed so they do not mask the error
// that triggered the rollback.
func (s *Session) Rollback() {
	if s.tx == nil {
		return
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("rollback failed", "error", err)
	}
}

// Exec runs a statement on the active transaction, or directly on the
// connection when none is active.
func (s *Session) Exec(ctx context.Context, query string, args ...any) error {
	var err error
	if s.tx != nil {
		_, err = s.tx.ExecContext(ctx, query, args...)
	} else {
		_, err = s.conn.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return verr.Wrap(verr.ErrSQLExecution, err, "statement execution failed").
			WithBatch(query)
	}
	return nil
}

// Query runs a query with the same transaction routing as Exec.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error
	if s.tx != nil {
		rows, err = s.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.conn.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, verr.Wrap(verr.ErrSQLExecution, err, "query execution failed").
			WithBatch(query)
	}
	return rows, nil
}

// QueryRow runs a single-row query with the same transaction routing
// as Exec.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if s.tx != nil {
		return s.tx.QueryRowContext(ctx, query, args...)
	}
	return s.conn.QueryRowContext(ctx, query, args...)
}

// Close rolls back any active transaction and returns the connection
// to the pool.
func (s *Session) Close() error {
	s.Rollback()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
