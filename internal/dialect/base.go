// Package dialect provides database-specific SQL generation.
// This file contains shared helper functions used by all dialect implementations.
package dialect

import (
	"fmt"
	"strings"

	"github.com/vireodb/vireo/internal/model"
)

// QuoteIdentFunc is a function that quotes an identifier.
type QuoteIdentFunc func(name string) string

// ColumnDefFunc generates the SQL fragment for one column definition.
type ColumnDefFunc func(col *model.Column, schema string) (string, error)

// writeQuotedList writes comma-separated quoted identifiers to the builder.
func writeQuotedList(b *strings.Builder, items []string, quote QuoteIdentFunc) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// quoteWith escapes every occurrence of closer inside name by doubling
// it, then wraps the result in opener/closer.
func quoteWith(name, opener, closer string) string {
	escaped := strings.ReplaceAll(name, closer, closer+closer)
	return opener + escaped + closer
}

// escapeLiteral doubles single quotes and wraps the value.
func escapeLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// BooleanLiterals holds the true/false literals for a dialect.
type BooleanLiterals struct {
	True  string
	False string
}

// PostgresBooleans uses TRUE/FALSE.
var PostgresBooleans = BooleanLiterals{True: "TRUE", False: "FALSE"}

// SQLServerBooleans uses 1/0 (BIT values).
var SQLServerBooleans = BooleanLiterals{True: "1", False: "0"}

// buildDefaultValueSQL generates the SQL representation of a default
// value. Only boolean rendering differs between dialects.
func buildDefaultValueSQL(value any, bools BooleanLiterals) string {
	switch v := value.(type) {
	case string:
		return escapeLiteral(v)
	case bool:
		if v {
			return bools.True
		}
		return bools.False
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return "NULL"
	default:
		return escapeLiteral(fmt.Sprintf("%v", v))
	}
}

// buildCreateTableBody generates the parenthesized body of a CREATE
// TABLE statement: column definitions followed by the inline primary
// key constraint. Unique, check, and foreign key constraints are
// emitted as separate batches by the callers.
func buildCreateTableBody(t *model.Table, quote QuoteIdentFunc, columnDef ColumnDefFunc) (string, error) {
	var b strings.Builder
	b.WriteString("(\n")

	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("    ")
		def, err := columnDef(col, t.Schema)
		if err != nil {
			return "", err
		}
		b.WriteString(def)
	}

	if t.PrimaryKey != nil {
		b.WriteString(",\n    CONSTRAINT ")
		b.WriteString(quote(t.PrimaryKey.Name))
		b.WriteString(" PRIMARY KEY (")
		writeQuotedList(&b, t.PrimaryKey.Columns, quote)
		b.WriteString(")")
	}

	b.WriteString("\n)")
	return b.String(), nil
}

// buildUniqueClause generates "ADD CONSTRAINT name UNIQUE (cols)".
func buildUniqueClause(key *model.Key, quote QuoteIdentFunc) string {
	var b strings.Builder
	b.WriteString("ADD CONSTRAINT ")
	b.WriteString(quote(key.Name))
	b.WriteString(" UNIQUE (")
	writeQuotedList(&b, key.Columns, quote)
	b.WriteString(")")
	return b.String()
}

// buildCheckClause generates "ADD CONSTRAINT name CHECK (expr)". The
// expression is an opaque dialect fragment and is not quoted.
func buildCheckClause(check *model.Check, quote QuoteIdentFunc) string {
	var b strings.Builder
	b.WriteString("ADD CONSTRAINT ")
	b.WriteString(quote(check.Name))
	b.WriteString(" CHECK (")
	b.WriteString(check.Expression)
	b.WriteString(")")
	return b.String()
}

// buildForeignKeyClause generates "ADD CONSTRAINT name FOREIGN KEY
// (cols) REFERENCES ref (refcols) [ON DELETE a] [ON UPDATE a]".
// Referential actions are omitted when they are NO ACTION, the engine
// default on both dialects.
func buildForeignKeyClause(fk *model.ForeignKey, localSchema string, quote QuoteIdentFunc, qualify func(schema, table string) string) string {
	refSchema := fk.RefSchema
	if refSchema == "" {
		refSchema = localSchema
	}

	var b strings.Builder
	b.WriteString("ADD CONSTRAINT ")
	b.WriteString(quote(fk.Name))
	b.WriteString(" FOREIGN KEY (")
	writeQuotedList(&b, fk.Columns, quote)
	b.WriteString(") REFERENCES ")
	b.WriteString(qualify(refSchema, fk.RefTable))
	b.WriteString(" (")
	writeQuotedList(&b, fk.RefColumns, quote)
	b.WriteString(")")

	if fk.OnDelete != "" && fk.OnDelete != model.NoAction {
		b.WriteString(" ON DELETE ")
		b.WriteString(string(fk.OnDelete))
	}
	if fk.OnUpdate != "" && fk.OnUpdate != model.NoAction {
		b.WriteString(" ON UPDATE ")
		b.WriteString(string(fk.OnUpdate))
	}

	return b.String()
}

// buildCreateIndexSQL generates CREATE [UNIQUE] INDEX with an optional
// IF NOT EXISTS clause (PostgreSQL; SQL Server guards externally).
func buildCreateIndexSQL(idx *model.Index, qualified string, quote QuoteIdentFunc, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(quote(idx.Name))
	b.WriteString(" ON ")
	b.WriteString(qualified)
	b.WriteString(" (")
	writeQuotedList(&b, idx.Columns, quote)
	b.WriteString(")")
	return b.String()
}

// sequenceOptions renders "START WITH s INCREMENT BY i" using 1 for
// unset values.
func sequenceOptions(start, increment int64) string {
	if start == 0 {
		start = 1
	}
	if increment == 0 {
		increment = 1
	}
	return fmt.Sprintf("START WITH %d INCREMENT BY %d", start, increment)
}

// int64Or returns *v or the fallback when v is nil.
func int64Or(v *int64, fallback int64) int64 {
	if v != nil {
		return *v
	}
	return fallback
}

// intOr returns *v or the fallback when v is nil.
func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
