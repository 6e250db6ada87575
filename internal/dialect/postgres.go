package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/verr"
)

// postgres implements the Dialect interface for PostgreSQL.
type postgres struct{}

// Postgres returns the PostgreSQL dialect implementation.
func Postgres() Dialect {
	return &postgres{}
}

func (d *postgres) Name() string {
	return "postgres"
}

// -----------------------------------------------------------------------------
// Identifiers and literals
// -----------------------------------------------------------------------------

func (d *postgres) QuoteIdent(name string) string {
	// PostgreSQL uses double quotes for identifiers.
	return quoteWith(name, `"`, `"`)
}

func (d *postgres) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (d *postgres) QuoteLiteral(value string) string {
	return escapeLiteral(value)
}

func (d *postgres) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}

// -----------------------------------------------------------------------------
// Feature support
// -----------------------------------------------------------------------------

func (d *postgres) BatchSeparator() string {
	return ""
}

func (d *postgres) SupportsTransactionalDDL() bool {
	return true
}

// -----------------------------------------------------------------------------
// Type mapping
// -----------------------------------------------------------------------------

func (d *postgres) ColumnType(col *model.Column) (string, error) {
	switch col.Kind {
	case model.Int32:
		return "INTEGER", nil
	case model.Int64:
		return "BIGINT", nil
	case model.Bool:
		return "BOOLEAN", nil
	case model.DateTime:
		return "TIMESTAMP", nil
	case model.DateTimeOffset:
		return "TIMESTAMPTZ", nil
	case model.Guid:
		return "UUID", nil
	case model.Decimal:
		return fmt.Sprintf("NUMERIC(%d, %d)", intOr(col.Precision, 18), intOr(col.Scale, 2)), nil
	case model.Double:
		return "DOUBLE PRECISION", nil
	case model.String:
		switch {
		case col.FixedLength != nil:
			return fmt.Sprintf("CHAR(%d)", *col.FixedLength), nil
		case col.MaxLength != nil:
			return fmt.Sprintf("VARCHAR(%d)", *col.MaxLength), nil
		default:
			return "TEXT", nil
		}
	case model.Bytes:
		// BYTEA has no length facet; bounds are enforced upstream.
		return "BYTEA", nil
	case model.JSON:
		return "JSONB", nil
	default:
		return "", verr.New(verr.ErrUnknownKind, "no PostgreSQL type mapping for kind").
			With("kind", col.Kind.String()).
			WithColumn(col.Name)
	}
}

// -----------------------------------------------------------------------------
// DDL generation
// -----------------------------------------------------------------------------

func (d *postgres) CreateSchema(name string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdent(name)
}

func (d *postgres) CreateSequence(schema, name string, start, increment int64, guarded bool) string {
	var b strings.Builder
	b.WriteString("CREATE SEQUENCE ")
	if guarded {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(d.QualifyTable(schema, name))
	b.WriteString(" AS BIGINT ")
	b.WriteString(sequenceOptions(start, increment))
	return b.String()
}

func (d *postgres) CreateTable(t *model.Table, guarded bool) (string, error) {
	body, err := buildCreateTableBody(t, d.QuoteIdent, d.columnDef)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if guarded {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(d.QualifyTable(t.Schema, t.Name))
	b.WriteString(" ")
	b.WriteString(body)
	return b.String(), nil
}

func (d *postgres) DropTable(schema, table string) string {
	return "DROP TABLE " + d.QualifyTable(schema, table)
}

func (d *postgres) AddColumn(schema, table string, col *model.Column) (string, error) {
	def, err := d.columnDef(col, schema)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " ADD COLUMN " + def, nil
}

func (d *postgres) DropColumn(schema, table, column string) string {
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " DROP COLUMN " + d.QuoteIdent(column)
}

func (d *postgres) AddUnique(schema, table string, key *model.Key, guarded bool) string {
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildUniqueClause(key, d.QuoteIdent)
	if !guarded {
		return stmt
	}
	return d.guardConstraint(key.Name, qualified, stmt)
}

func (d *postgres) AddCheck(schema, table string, check *model.Check, guarded bool) string {
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildCheckClause(check, d.QuoteIdent)
	if !guarded {
		return stmt
	}
	return d.guardConstraint(check.Name, qualified, stmt)
}

func (d *postgres) AddIndex(schema, table string, idx *model.Index, guarded bool) string {
	return buildCreateIndexSQL(idx, d.QualifyTable(schema, table), d.QuoteIdent, guarded)
}

func (d *postgres) AddForeignKey(schema, table string, fk *model.ForeignKey, guarded bool) (string, error) {
	if err := fk.Validate(); err != nil {
		return "", err
	}
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildForeignKeyClause(fk, schema, d.QuoteIdent, d.QualifyTable)
	if !guarded {
		return stmt, nil
	}
	return d.guardConstraint(fk.Name, qualified, stmt), nil
}

func (d *postgres) DropConstraint(schema, table, name string) string {
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " DROP CONSTRAINT " + d.QuoteIdent(name)
}

func (d *postgres) DropIndex(schema, table, index string) string {
	// Indexes are schema-scoped objects in PostgreSQL.
	return "DROP INDEX " + d.QualifyTable(schema, index)
}

func (d *postgres) DropView(schema, name string) string {
	return "DROP VIEW IF EXISTS " + d.QualifyTable(schema, name)
}

func (d *postgres) DropProcedure(schema, name string) string {
	return "DROP PROCEDURE IF EXISTS " + d.QualifyTable(schema, name)
}

func (d *postgres) DropTrigger(schema, name, onTable string) string {
	return "DROP TRIGGER IF EXISTS " + d.QuoteIdent(name) + " ON " + d.QualifyTable(schema, onTable)
}

func (d *postgres) RawSQLFor(op *ops.RawSQL) string {
	if op.Postgres != "" {
		return op.Postgres
	}
	return op.SQL
}

// -----------------------------------------------------------------------------
// Helper methods
// -----------------------------------------------------------------------------

// guardConstraint wraps stmt in a DO block that checks pg_constraint,
// since ALTER TABLE ADD CONSTRAINT has no IF NOT EXISTS form.
func (d *postgres) guardConstraint(constraint, qualifiedTable, stmt string) string {
	var b strings.Builder
	b.WriteString("DO $$\nBEGIN\n")
	b.WriteString("    IF NOT EXISTS (\n")
	b.WriteString("        SELECT 1 FROM pg_catalog.pg_constraint\n")
	b.WriteString("        WHERE conname = ")
	b.WriteString(escapeLiteral(constraint))
	b.WriteString(" AND conrelid = ")
	b.WriteString(escapeLiteral(qualifiedTable))
	b.WriteString("::regclass\n")
	b.WriteString("    ) THEN\n        ")
	b.WriteString(stmt)
	b.WriteString(";\n    END IF;\nEND $$")
	return b.String()
}

// columnDef generates the SQL for a column definition.
func (d *postgres) columnDef(col *model.Column, schema string) (string, error) {
	sqlType, err := d.ColumnType(col)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(d.QuoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(sqlType)

	if col.IncrementalKey && col.SequenceName == "" {
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		if col.StartWith != nil || col.IncrementBy != nil {
			fmt.Fprintf(&b, " (%s)", sequenceOptions(int64Or(col.StartWith, 1), int64Or(col.IncrementBy, 1)))
		}
	}

	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}

	if col.SequenceName != "" {
		b.WriteString(" DEFAULT nextval(")
		b.WriteString(escapeLiteral(d.QualifyTable(schema, col.SequenceName)))
		b.WriteString(")")
	} else if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(buildDefaultValueSQL(col.Default, PostgresBooleans))
	}

	return b.String(), nil
}
