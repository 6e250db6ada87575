// Package dialect provides database-specific SQL generation.
// Each dialect implements type mappings from the schema model to SQL,
// identifier quoting, and DDL statement generation.
package dialect

import (
	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
)

// Dialect defines the interface for database-specific SQL generation.
// Implementations exist for SQL Server and PostgreSQL.
//
// Methods that take a guarded flag wrap the statement in an existence
// check so the resulting batch is safe to replay against a database
// that already contains the object. Deploy scripts set guarded; plain
// migration batches do not.
type Dialect interface {
	// Name returns the dialect name (sqlserver, postgres).
	Name() string

	// -------------------------------------------------------------------------
	// Identifiers and literals
	// -------------------------------------------------------------------------

	// QuoteIdent quotes an identifier (schema/table/column name).
	// SQL Server: [name] with ] doubled.
	// PostgreSQL: "name" with " doubled.
	QuoteIdent(name string) string

	// QualifyTable returns the quoted schema-qualified table name.
	QualifyTable(schema, table string) string

	// QuoteLiteral quotes a string literal with ' doubled.
	QuoteLiteral(value string) string

	// Placeholder returns a parameter placeholder for the given index (1-based).
	// SQL Server: @p1, @p2, ...
	// PostgreSQL: $1, $2, ...
	Placeholder(index int) string

	// -------------------------------------------------------------------------
	// Feature support
	// -------------------------------------------------------------------------

	// BatchSeparator returns the separator line emitted between batches
	// in rendered scripts, or "" when statements stand alone.
	// SQL Server: GO
	// PostgreSQL: ""
	BatchSeparator() string

	// SupportsTransactionalDDL returns true if DDL can be wrapped in
	// transactions. Both supported dialects: true.
	SupportsTransactionalDDL() bool

	// -------------------------------------------------------------------------
	// Type mapping
	// -------------------------------------------------------------------------

	// ColumnType returns the SQL type for a column, honoring length,
	// precision/scale, and unicode facets.
	ColumnType(col *model.Column) (string, error)

	// -------------------------------------------------------------------------
	// DDL generation
	// -------------------------------------------------------------------------

	// CreateSchema generates an existence-guarded CREATE SCHEMA batch.
	CreateSchema(name string) string

	// CreateSequence generates a CREATE SEQUENCE batch for columns backed
	// by an explicit sequence.
	CreateSequence(schema, name string, start, increment int64, guarded bool) string

	// CreateTable generates a CREATE TABLE batch with column definitions
	// and the inline primary key constraint. Unique, check, and foreign
	// key constraints are emitted as separate batches.
	CreateTable(t *model.Table, guarded bool) (string, error)

	// DropTable generates a DROP TABLE batch.
	DropTable(schema, table string) string

	// AddColumn generates an ALTER TABLE ADD batch.
	AddColumn(schema, table string, col *model.Column) (string, error)

	// DropColumn generates an ALTER TABLE DROP COLUMN batch.
	DropColumn(schema, table, column string) string

	// AddUnique generates an ALTER TABLE ADD CONSTRAINT ... UNIQUE batch.
	AddUnique(schema, table string, key *model.Key, guarded bool) string

	// AddCheck generates an ALTER TABLE ADD CONSTRAINT ... CHECK batch.
	AddCheck(schema, table string, check *model.Check, guarded bool) string

	// AddIndex generates a CREATE [UNIQUE] INDEX batch.
	AddIndex(schema, table string, idx *model.Index, guarded bool) string

	// AddForeignKey generates an ALTER TABLE ADD CONSTRAINT ... FOREIGN KEY batch.
	AddForeignKey(schema, table string, fk *model.ForeignKey, guarded bool) (string, error)

	// DropConstraint generates an ALTER TABLE DROP CONSTRAINT batch.
	DropConstraint(schema, table, name string) string

	// DropIndex generates a DROP INDEX batch.
	DropIndex(schema, table, index string) string

	// DropView generates a DROP VIEW IF EXISTS batch.
	DropView(schema, name string) string

	// DropProcedure generates a DROP PROCEDURE IF EXISTS batch.
	DropProcedure(schema, name string) string

	// DropTrigger generates a DROP TRIGGER IF EXISTS batch. PostgreSQL
	// requires the owning table; SQL Server ignores it.
	DropTrigger(schema, name, onTable string) string

	// RawSQLFor returns the SQL for a raw operation, using the
	// dialect-specific override when present.
	RawSQLFor(op *ops.RawSQL) string
}

// Get returns the dialect implementation for the given name.
// Valid names: "sqlserver", "mssql", "postgres", "postgresql".
// Returns nil if the dialect is not supported.
func Get(name string) Dialect {
	switch name {
	case "sqlserver", "mssql":
		return SQLServer()
	case "postgres", "postgresql":
		return Postgres()
	default:
		return nil
	}
}

// Names returns the list of supported dialect names.
func Names() []string {
	return []string{"sqlserver", "postgres"}
}
