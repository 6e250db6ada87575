package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/verr"
)

// sqlserver implements the Dialect interface for Microsoft SQL Server.
type sqlserver struct{}

// SQLServer returns the SQL Server dialect implementation.
func SQLServer() Dialect {
	return &sqlserver{}
}

func (d *sqlserver) Name() string {
	return "sqlserver"
}

// -----------------------------------------------------------------------------
// Identifiers and literals
// -----------------------------------------------------------------------------

func (d *sqlserver) QuoteIdent(name string) string {
	// SQL Server brackets identifiers; closing brackets are doubled.
	return quoteWith(name, "[", "]")
}

func (d *sqlserver) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

func (d *sqlserver) QuoteLiteral(value string) string {
	return escapeLiteral(value)
}

// nstr renders value as a Unicode string literal for catalog lookups.
func (d *sqlserver) nstr(value string) string {
	return "N" + escapeLiteral(value)
}

func (d *sqlserver) Placeholder(index int) string {
	return "@p" + strconv.Itoa(index)
}

// -----------------------------------------------------------------------------
// Feature support
// -----------------------------------------------------------------------------

func (d *sqlserver) BatchSeparator() string {
	return "GO"
}

func (d *sqlserver) SupportsTransactionalDDL() bool {
	return true
}

// -----------------------------------------------------------------------------
// Type mapping
// -----------------------------------------------------------------------------

func (d *sqlserver) ColumnType(col *model.Column) (string, error) {
	switch col.Kind {
	case model.Int32:
		return "INT", nil
	case model.Int64:
		return "BIGINT", nil
	case model.Bool:
		return "BIT", nil
	case model.DateTime:
		return "DATETIME2", nil
	case model.DateTimeOffset:
		return "DATETIMEOFFSET", nil
	case model.Guid:
		return "UNIQUEIDENTIFIER", nil
	case model.Decimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", intOr(col.Precision, 18), intOr(col.Scale, 2)), nil
	case model.Double:
		return "FLOAT", nil
	case model.String:
		return d.stringType(col), nil
	case model.Bytes:
		if col.MaxLength != nil {
			return fmt.Sprintf("VARBINARY(%d)", *col.MaxLength), nil
		}
		return "VARBINARY(MAX)", nil
	case model.JSON:
		return "NVARCHAR(MAX)", nil
	default:
		return "", verr.New(verr.ErrUnknownKind, "no SQL Server type mapping for kind").
			With("kind", col.Kind.String()).
			WithColumn(col.Name)
	}
}

func (d *sqlserver) stringType(col *model.Column) string {
	prefix := ""
	if col.Unicode {
		prefix = "N"
	}
	switch {
	case col.FixedLength != nil:
		return fmt.Sprintf("%sCHAR(%d)", prefix, *col.FixedLength)
	case col.MaxLength != nil:
		return fmt.Sprintf("%sVARCHAR(%d)", prefix, *col.MaxLength)
	default:
		return prefix + "VARCHAR(MAX)"
	}
}

// -----------------------------------------------------------------------------
// DDL generation
// -----------------------------------------------------------------------------

func (d *sqlserver) CreateSchema(name string) string {
	// CREATE SCHEMA must be the only statement in its batch, so the
	// guarded form runs it through EXEC.
	var b strings.Builder
	b.WriteString("IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = ")
	b.WriteString(d.nstr(name))
	b.WriteString(")\n    EXEC(")
	b.WriteString(d.nstr("CREATE SCHEMA " + d.QuoteIdent(name)))
	b.WriteString(")")
	return b.String()
}

func (d *sqlserver) CreateSequence(schema, name string, start, increment int64, guarded bool) string {
	qualified := d.QualifyTable(schema, name)
	stmt := fmt.Sprintf("CREATE SEQUENCE %s AS BIGINT %s", qualified, sequenceOptions(start, increment))
	if !guarded {
		return stmt
	}
	return fmt.Sprintf("IF OBJECT_ID(%s, N'SO') IS NULL\n%s", d.nstr(qualified), stmt)
}

func (d *sqlserver) CreateTable(t *model.Table, guarded bool) (string, error) {
	qualified := d.QualifyTable(t.Schema, t.Name)

	body, err := buildCreateTableBody(t, d.QuoteIdent, d.columnDef)
	if err != nil {
		return "", err
	}

	stmt := "CREATE TABLE " + qualified + " " + body
	if !guarded {
		return stmt, nil
	}
	return fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NULL\n%s", d.nstr(qualified), stmt), nil
}

func (d *sqlserver) DropTable(schema, table string) string {
	return "DROP TABLE " + d.QualifyTable(schema, table)
}

func (d *sqlserver) AddColumn(schema, table string, col *model.Column) (string, error) {
	def, err := d.columnDef(col, schema)
	if err != nil {
		return "", err
	}
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " ADD " + def, nil
}

func (d *sqlserver) DropColumn(schema, table, column string) string {
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " DROP COLUMN " + d.QuoteIdent(column)
}

func (d *sqlserver) AddUnique(schema, table string, key *model.Key, guarded bool) string {
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildUniqueClause(key, d.QuoteIdent)
	if !guarded {
		return stmt
	}
	return d.guardConstraint("sys.objects", key.Name, qualified, stmt)
}

func (d *sqlserver) AddCheck(schema, table string, check *model.Check, guarded bool) string {
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildCheckClause(check, d.QuoteIdent)
	if !guarded {
		return stmt
	}
	return d.guardConstraint("sys.objects", check.Name, qualified, stmt)
}

func (d *sqlserver) AddIndex(schema, table string, idx *model.Index, guarded bool) string {
	qualified := d.QualifyTable(schema, table)
	stmt := buildCreateIndexSQL(idx, qualified, d.QuoteIdent, false)
	if !guarded {
		return stmt
	}
	var b strings.Builder
	b.WriteString("IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = ")
	b.WriteString(d.nstr(idx.Name))
	b.WriteString(" AND object_id = OBJECT_ID(")
	b.WriteString(d.nstr(qualified))
	b.WriteString("))\n")
	b.WriteString(stmt)
	return b.String()
}

func (d *sqlserver) AddForeignKey(schema, table string, fk *model.ForeignKey, guarded bool) (string, error) {
	if err := fk.Validate(); err != nil {
		return "", err
	}
	qualified := d.QualifyTable(schema, table)
	stmt := "ALTER TABLE " + qualified + " " + buildForeignKeyClause(fk, schema, d.QuoteIdent, d.QualifyTable)
	if !guarded {
		return stmt, nil
	}
	return d.guardConstraint("sys.foreign_keys", fk.Name, qualified, stmt), nil
}

func (d *sqlserver) DropConstraint(schema, table, name string) string {
	return "ALTER TABLE " + d.QualifyTable(schema, table) + " DROP CONSTRAINT " + d.QuoteIdent(name)
}

func (d *sqlserver) DropIndex(schema, table, index string) string {
	return "DROP INDEX " + d.QuoteIdent(index) + " ON " + d.QualifyTable(schema, table)
}

func (d *sqlserver) DropView(schema, name string) string {
	return "DROP VIEW IF EXISTS " + d.QualifyTable(schema, name)
}

func (d *sqlserver) DropProcedure(schema, name string) string {
	return "DROP PROCEDURE IF EXISTS " + d.QualifyTable(schema, name)
}

func (d *sqlserver) DropTrigger(schema, name, onTable string) string {
	// DML triggers are schema-scoped objects; the owning table is
	// implicit in the trigger definition.
	return "DROP TRIGGER IF EXISTS " + d.QualifyTable(schema, name)
}

func (d *sqlserver) RawSQLFor(op *ops.RawSQL) string {
	if op.SQLServer != "" {
		return op.SQLServer
	}
	return op.SQL
}

// -----------------------------------------------------------------------------
// Helper methods
// -----------------------------------------------------------------------------

// guardConstraint wraps stmt so it only runs when the named constraint
// is absent from the parent table.
func (d *sqlserver) guardConstraint(catalog, constraint, qualifiedTable, stmt string) string {
	var b strings.Builder
	b.WriteString("IF NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(catalog)
	b.WriteString(" WHERE name = ")
	b.WriteString(d.nstr(constraint))
	b.WriteString(" AND parent_object_id = OBJECT_ID(")
	b.WriteString(d.nstr(qualifiedTable))
	b.WriteString("))\n")
	b.WriteString(stmt)
	return b.String()
}

// columnDef generates the SQL for a column definition.
func (d *sqlserver) columnDef(col *model.Column, schema string) (string, error) {
	sqlType, err := d.ColumnType(col)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(d.QuoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(sqlType)

	if col.IncrementalKey && col.SequenceName == "" {
		fmt.Fprintf(&b, " IDENTITY(%d,%d)", int64Or(col.StartWith, 1), int64Or(col.IncrementBy, 1))
	}

	if col.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}

	if col.SequenceName != "" {
		b.WriteString(" DEFAULT NEXT VALUE FOR ")
		b.WriteString(d.QualifyTable(schema, col.SequenceName))
	} else if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(buildDefaultValueSQL(col.Default, SQLServerBooleans))
	}

	return b.String(), nil
}
