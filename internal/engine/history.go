package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vireodb/vireo/internal/verr"
)

// History ledger table:
// CREATE TABLE vireo_migrations (
//     MigrationId    VARCHAR(150) PRIMARY KEY,
//     Name           VARCHAR(150) NOT NULL,
//     ProductVersion VARCHAR(32)  NOT NULL,
//     AppliedAtUtc   <timestamp>  NOT NULL
// )

const (
	// HistoryTableName is the name of the applied-migration ledger.
	HistoryTableName = "vireo_migrations"

	// TimestampLayout renders applied-at values with seven fractional
	// digits, matching the ledger's wire format.
	TimestampLayout = "2006-01-02T15:04:05.0000000"
)

// SQLDialect is the slice of the dialect surface the execution
// protocol needs. Satisfied by dialect.Dialect; tests substitute
// lightweight stand-ins.
type SQLDialect interface {
	Name() string
	QuoteIdent(name string) string
	Placeholder(index int) string
}

// AppliedMigration is one ledger row.
type AppliedMigration struct {
	ID             string
	Name           string
	ProductVersion string
	AppliedAtUtc   string
}

// History is the append-only ledger of applied migration ids. Rows are
// only ever inserted; there is no update or delete, reflecting the
// one-way "has this id ever been applied" decision.
type History struct {
	session *Session
	dialect SQLDialect
}

// NewHistory binds the ledger to a session.
func NewHistory(s *Session, d SQLDialect) *History {
	return &History{session: s, dialect: d}
}

// FormatUTC renders a timestamp in the ledger's wire format.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// EnsureCreated idempotently creates the ledger table.
func (h *History) EnsureCreated(ctx context.Context) error {
	if err := h.session.Exec(ctx, h.createTableSQL()); err != nil {
		return verr.Wrap(verr.ErrHistory, err, "failed to create history table")
	}
	return nil
}

// createTableSQL returns the CREATE TABLE statement for the ledger.
func (h *History) createTableSQL() string {
	quoted := h.dialect.QuoteIdent(HistoryTableName)

	switch h.dialect.Name() {
	case "sqlserver":
		return fmt.Sprintf(`IF OBJECT_ID(N'%s', N'U') IS NULL
CREATE TABLE %s (
    MigrationId    NVARCHAR(150) NOT NULL CONSTRAINT [PK_%s] PRIMARY KEY,
    Name           NVARCHAR(150) NOT NULL,
    ProductVersion NVARCHAR(32) NOT NULL,
    AppliedAtUtc   DATETIME2 NOT NULL
)`, HistoryTableName, quoted, HistoryTableName)

	case "postgres":
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    MigrationId    VARCHAR(150) PRIMARY KEY,
    Name           VARCHAR(150) NOT NULL,
    ProductVersion VARCHAR(32) NOT NULL,
    AppliedAtUtc   TIMESTAMP NOT NULL
)`, quoted)

	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    MigrationId    VARCHAR(150) PRIMARY KEY,
    Name           VARCHAR(150) NOT NULL,
    ProductVersion VARCHAR(32) NOT NULL,
    AppliedAtUtc   VARCHAR(35) NOT NULL
)`, quoted)
	}
}

// Applied returns every ledger row ordered by migration id.
func (h *History) Applied(ctx context.Context) ([]AppliedMigration, error) {
	query := fmt.Sprintf(
		"SELECT MigrationId, Name, ProductVersion, AppliedAtUtc FROM %s ORDER BY MigrationId ASC",
		h.dialect.QuoteIdent(HistoryTableName),
	)

	rows, err := h.session.Query(ctx, query)
	if err != nil {
		return nil, verr.Wrap(verr.ErrHistory, err, "failed to read history ledger")
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		var appliedAt any
		if err := rows.Scan(&m.ID, &m.Name, &m.ProductVersion, &appliedAt); err != nil {
			return nil, verr.Wrap(verr.ErrHistory, err, "failed to scan history row")
		}
		m.AppliedAtUtc = formatAppliedAt(appliedAt)
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Wrap(verr.ErrHistory, err, "error iterating history rows")
	}
	return applied, nil
}

// AppliedIDs returns the set of recorded migration ids.
func (h *History) AppliedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := h.Applied(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, m := range rows {
		ids[m.ID] = struct{}{}
	}
	return ids, nil
}

// Insert appends one ledger row.
func (h *History) Insert(ctx context.Context, id, name, productVersion string, appliedAt time.Time) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (MigrationId, Name, ProductVersion, AppliedAtUtc) VALUES (%s, %s, %s, %s)",
		h.dialect.QuoteIdent(HistoryTableName),
		h.dialect.Placeholder(1),
		h.dialect.Placeholder(2),
		h.dialect.Placeholder(3),
		h.dialect.Placeholder(4),
	)

	if err := h.session.Exec(ctx, query, id, name, productVersion, FormatUTC(appliedAt)); err != nil {
		return verr.Wrap(verr.ErrHistory, err, "failed to record applied migration").
			WithMigration(id)
	}
	return nil
}

// formatAppliedAt normalizes the scanned applied-at value, which comes
// back as a native timestamp or as text depending on the engine.
func formatAppliedAt(val any) string {
	switch t := val.(type) {
	case time.Time:
		return FormatUTC(t)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
