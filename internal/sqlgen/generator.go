// Package sqlgen turns schema models and migration operations into
// ordered lists of SQL batches.
//
// Two modes exist. Bootstrap renders a whole model as an idempotent
// deploy script: every batch carries an existence guard so the script
// can be replayed against a database in any prior state. Incremental
// renders an operation list as plain migration batches in input order.
//
// In both modes every foreign key batch is deferred to the end of the
// output, so tables can reference each other regardless of the order
// they are created in.
package sqlgen

import (
	"strings"

	"github.com/vireodb/vireo/internal/dialect"
	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/script"
	"github.com/vireodb/vireo/internal/verr"
)

// Bootstrap generates the idempotent deploy script for a full schema
// model. Batch order is staged: all schemas sorted by name, then per
// table (sorted by qualified name) its sequences and the table itself,
// then per table its unique constraints, check constraints, and
// indexes, then every foreign key in the same table order.
func Bootstrap(m *model.SchemaModel, d dialect.Dialect) ([]string, error) {
	var batches []string

	for _, name := range m.SchemaNames() {
		if name == "" {
			continue
		}
		batches = append(batches, d.CreateSchema(name))
	}

	tables := m.Tables()

	for _, t := range tables {
		batches = append(batches, sequenceBatches(t.Schema, t.Columns, d, true)...)

		sql, err := d.CreateTable(t, true)
		if err != nil {
			return nil, err
		}
		batches = append(batches, sql)
	}

	for _, t := range tables {
		for _, u := range t.Uniques {
			batches = append(batches, d.AddUnique(t.Schema, t.Name, u, true))
		}
		for _, c := range t.Checks {
			batches = append(batches, d.AddCheck(t.Schema, t.Name, c, true))
		}
		for _, ix := range t.Indexes {
			batches = append(batches, d.AddIndex(t.Schema, t.Name, ix, true))
		}
	}

	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			sql, err := d.AddForeignKey(t.Schema, t.Name, fk, true)
			if err != nil {
				return nil, err
			}
			batches = append(batches, sql)
		}
	}

	return batches, nil
}

// Incremental generates migration batches for an operation list.
// Batches appear in operation order except foreign keys: every
// AddForeignKey, standalone or embedded in a CreateTable, is collected
// and appended after all other batches, preserving relative order.
func Incremental(operations []ops.Operation, d dialect.Dialect) ([]string, error) {
	var batches []string
	var deferred []string

	for i, op := range operations {
		if err := op.Validate(); err != nil {
			return nil, err
		}

		switch op := op.(type) {
		case *ops.CreateTable:
			t := op.Def
			batches = append(batches, sequenceBatches(t.Schema, t.Columns, d, false)...)

			sql, err := d.CreateTable(t, false)
			if err != nil {
				return nil, err
			}
			batches = append(batches, sql)

			for _, u := range t.Uniques {
				batches = append(batches, d.AddUnique(t.Schema, t.Name, u, false))
			}
			for _, c := range t.Checks {
				batches = append(batches, d.AddCheck(t.Schema, t.Name, c, false))
			}
			for _, ix := range t.Indexes {
				batches = append(batches, d.AddIndex(t.Schema, t.Name, ix, false))
			}
			for _, fk := range t.ForeignKeys {
				sql, err := d.AddForeignKey(t.Schema, t.Name, fk, false)
				if err != nil {
					return nil, err
				}
				deferred = append(deferred, sql)
			}

		case *ops.DropTable:
			batches = append(batches, d.DropTable(op.Schema, op.Name))

		case *ops.AddColumn:
			batches = append(batches, sequenceBatches(op.Schema, []*model.Column{op.Column}, d, false)...)
			sql, err := d.AddColumn(op.Schema, op.Name, op.Column)
			if err != nil {
				return nil, err
			}
			batches = append(batches, sql)

		case *ops.DropColumn:
			batches = append(batches, d.DropColumn(op.Schema, op.Name, op.Column))

		case *ops.AddUnique:
			batches = append(batches, d.AddUnique(op.Schema, op.Name, op.Unique, false))

		case *ops.AddCheck:
			batches = append(batches, d.AddCheck(op.Schema, op.Name, op.Check, false))

		case *ops.DropConstraint:
			batches = append(batches, d.DropConstraint(op.Schema, op.Name, op.Constraint))

		case *ops.AddIndex:
			batches = append(batches, d.AddIndex(op.Schema, op.Name, op.Index, false))

		case *ops.DropIndex:
			batches = append(batches, d.DropIndex(op.Schema, op.Name, op.Index))

		case *ops.AddForeignKey:
			sql, err := d.AddForeignKey(op.Schema, op.Name, op.ForeignKey, false)
			if err != nil {
				return nil, err
			}
			deferred = append(deferred, sql)

		case *ops.DropForeignKey:
			batches = append(batches, d.DropConstraint(op.Schema, op.Name, op.Constraint))

		case *ops.CreateOrAlterView:
			batches = append(batches, script.Split(op.Definition)...)

		case *ops.CreateOrAlterProcedure:
			batches = append(batches, script.Split(op.Definition)...)

		case *ops.CreateOrAlterTrigger:
			batches = append(batches, script.Split(op.Definition)...)

		case *ops.DropView:
			batches = append(batches, d.DropView(op.Schema, op.Name))

		case *ops.DropProcedure:
			batches = append(batches, d.DropProcedure(op.Schema, op.Name))

		case *ops.DropTrigger:
			batches = append(batches, d.DropTrigger(op.Schema, op.Name, op.OnTable))

		case *ops.RawSQL:
			batches = append(batches, script.Split(d.RawSQLFor(op))...)

		default:
			return nil, verr.New(verr.ErrUnsupportedOp, "operation has no SQL generation").
				WithOperation(op.Kind().String()).
				With("index", i)
		}
	}

	return append(batches, deferred...), nil
}

// Render joins batches into a single script. Dialects with a batch
// separator get one separator line between batches; others get
// statement terminators.
func Render(batches []string, d dialect.Dialect) string {
	sep := d.BatchSeparator()

	var b strings.Builder
	for _, batch := range batches {
		b.WriteString(batch)
		if sep != "" {
			b.WriteString("\n")
			b.WriteString(sep)
			b.WriteString("\n\n")
		} else {
			b.WriteString(";\n\n")
		}
	}
	return b.String()
}

// sequenceBatches emits CREATE SEQUENCE for every column backed by an
// explicit sequence, ahead of the statement that references it.
func sequenceBatches(schema string, columns []*model.Column, d dialect.Dialect, guarded bool) []string {
	var batches []string
	for _, col := range columns {
		if col == nil || col.SequenceName == "" {
			continue
		}
		start, increment := int64(1), int64(1)
		if col.StartWith != nil {
			start = *col.StartWith
		}
		if col.IncrementBy != nil {
			increment = *col.IncrementBy
		}
		batches = append(batches, d.CreateSequence(schema, col.SequenceName, start, increment, guarded))
	}
	return batches
}
