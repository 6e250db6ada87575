// Package ops defines the closed set of migration operations: atomic,
// explicitly authored schema-change intents. Operations are created by
// the caller, consumed exactly once by the SQL batch generator, and
// never mutated. The generator matches exhaustively on the variants; a
// variant with no generation rule is a fatal error.
package ops

import (
	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/verr"
)

// OpKind identifies an operation variant.
type OpKind int

const (
	OpCreateTable OpKind = iota
	OpDropTable
	OpAddColumn
	OpDropColumn
	OpAddUnique
	OpAddCheck
	OpDropConstraint
	OpAddIndex
	OpDropIndex
	OpAddForeignKey
	OpDropForeignKey
	OpCreateOrAlterView
	OpDropView
	OpCreateOrAlterProcedure
	OpDropProcedure
	OpCreateOrAlterTrigger
	OpDropTrigger
	OpRawSQL
)

// String returns the operation kind name used in error messages and
// migration files.
func (k OpKind) String() string {
	switch k {
	case OpCreateTable:
		return "create_table"
	case OpDropTable:
		return "drop_table"
	case OpAddColumn:
		return "add_column"
	case OpDropColumn:
		return "drop_column"
	case OpAddUnique:
		return "add_unique"
	case OpAddCheck:
		return "add_check"
	case OpDropConstraint:
		return "drop_constraint"
	case OpAddIndex:
		return "add_index"
	case OpDropIndex:
		return "drop_index"
	case OpAddForeignKey:
		return "add_foreign_key"
	case OpDropForeignKey:
		return "drop_foreign_key"
	case OpCreateOrAlterView:
		return "create_or_alter_view"
	case OpDropView:
		return "drop_view"
	case OpCreateOrAlterProcedure:
		return "create_or_alter_procedure"
	case OpDropProcedure:
		return "drop_procedure"
	case OpCreateOrAlterTrigger:
		return "create_or_alter_trigger"
	case OpDropTrigger:
		return "drop_trigger"
	case OpRawSQL:
		return "raw_sql"
	default:
		return "unknown"
	}
}

// Operation is one atomic schema-change intent.
type Operation interface {
	// Kind returns the operation variant.
	Kind() OpKind

	// Table returns the qualified target table ("schema.table"), or
	// an empty string for operations without a table target.
	Table() string

	// Validate checks that the operation is well-formed.
	Validate() error
}

// TableRef provides the Schema+Name target shared by table-scoped
// operations.
type TableRef struct {
	Schema string
	Name   string
}

// Table returns the qualified table name.
func (r TableRef) Table() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

func (r TableRef) validate(kind OpKind) error {
	if r.Name == "" {
		return verr.New(verr.ErrOpInvalid, "table name is required").
			WithOperation(kind.String())
	}
	return nil
}

// -----------------------------------------------------------------------------
// Table operations
// -----------------------------------------------------------------------------

// CreateTable creates a table from a full model definition: columns in
// declaration order, inline primary key, plus unique/check/index
// constraints. Its foreign keys are deferred to the end of the batch
// sequence by the generator.
type CreateTable struct {
	Def *model.Table
}

func (op *CreateTable) Kind() OpKind { return OpCreateTable }

func (op *CreateTable) Table() string {
	if op.Def == nil {
		return ""
	}
	return op.Def.QualifiedName()
}

func (op *CreateTable) Validate() error {
	if op.Def == nil || op.Def.Name == "" {
		return verr.New(verr.ErrOpInvalid, "table definition is required").
			WithOperation(op.Kind().String())
	}
	if len(op.Def.Columns) == 0 {
		return verr.New(verr.ErrOpInvalid, "table must have at least one column").
			WithTable(op.Def.Schema, op.Def.Name)
	}
	for _, col := range op.Def.Columns {
		if err := col.Validate(); err != nil {
			return verr.Wrap(verr.ErrOpInvalid, err, "invalid column").
				WithTable(op.Def.Schema, op.Def.Name).
				WithColumn(col.Name)
		}
	}
	for _, fk := range op.Def.ForeignKeys {
		if err := fk.Validate(); err != nil {
			return verr.Wrap(verr.ErrOpInvalid, err, "invalid foreign key").
				WithTable(op.Def.Schema, op.Def.Name)
		}
	}
	return nil
}

// DropTable removes an existing table.
type DropTable struct {
	TableRef
}

func (op *DropTable) Kind() OpKind    { return OpDropTable }
func (op *DropTable) Validate() error { return op.validate(op.Kind()) }

// -----------------------------------------------------------------------------
// Column operations
// -----------------------------------------------------------------------------

// AddColumn adds one column to an existing table.
type AddColumn struct {
	TableRef
	Column *model.Column
}

func (op *AddColumn) Kind() OpKind { return OpAddColumn }

func (op *AddColumn) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Column == nil {
		return verr.New(verr.ErrOpInvalid, "column definition is required").
			WithTable(op.Schema, op.Name)
	}
	if err := op.Column.Validate(); err != nil {
		return verr.Wrap(verr.ErrOpInvalid, err, "invalid column").
			WithTable(op.Schema, op.Name).
			WithColumn(op.Column.Name)
	}
	return nil
}

// DropColumn removes one column from an existing table.
type DropColumn struct {
	TableRef
	Column string
}

func (op *DropColumn) Kind() OpKind { return OpDropColumn }

func (op *DropColumn) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Column == "" {
		return verr.New(verr.ErrOpInvalid, "column name is required").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Constraint operations
// -----------------------------------------------------------------------------

// AddUnique adds a unique constraint to an existing table.
type AddUnique struct {
	TableRef
	Unique *model.Key
}

func (op *AddUnique) Kind() OpKind { return OpAddUnique }

func (op *AddUnique) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Unique == nil || len(op.Unique.Columns) == 0 {
		return verr.New(verr.ErrOpInvalid, "unique constraint must have at least one column").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// AddCheck adds a check constraint to an existing table.
type AddCheck struct {
	TableRef
	Check *model.Check
}

func (op *AddCheck) Kind() OpKind { return OpAddCheck }

func (op *AddCheck) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Check == nil || op.Check.Expression == "" {
		return verr.New(verr.ErrOpInvalid, "check expression is required").
			WithTable(op.Schema, op.Name)
	}
	if op.Check.Name == "" {
		return verr.New(verr.ErrOpInvalid, "check constraint name is required").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// DropConstraint removes a named constraint (unique, check, or default)
// from an existing table.
type DropConstraint struct {
	TableRef
	Constraint string
}

func (op *DropConstraint) Kind() OpKind { return OpDropConstraint }

func (op *DropConstraint) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Constraint == "" {
		return verr.New(verr.ErrOpInvalid, "constraint name is required").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// AddIndex creates an index on an existing table.
type AddIndex struct {
	TableRef
	Index *model.Index
}

func (op *AddIndex) Kind() OpKind { return OpAddIndex }

func (op *AddIndex) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Index == nil || len(op.Index.Columns) == 0 {
		return verr.New(verr.ErrOpInvalid, "index must have at least one column").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// DropIndex removes an index from an existing table.
type DropIndex struct {
	TableRef
	Index string
}

func (op *DropIndex) Kind() OpKind { return OpDropIndex }

func (op *DropIndex) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Index == "" {
		return verr.New(verr.ErrOpInvalid, "index name is required").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// AddForeignKey adds a foreign key constraint. The generator collects
// every AddForeignKey - standalone or embedded in a CreateTable - and
// emits them after all other batches so forward references never fail.
type AddForeignKey struct {
	TableRef
	ForeignKey *model.ForeignKey
}

func (op *AddForeignKey) Kind() OpKind { return OpAddForeignKey }

func (op *AddForeignKey) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.ForeignKey == nil {
		return verr.New(verr.ErrOpInvalid, "foreign key definition is required").
			WithTable(op.Schema, op.Name)
	}
	if err := op.ForeignKey.Validate(); err != nil {
		return verr.Wrap(verr.ErrOpInvalid, err, "invalid foreign key").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// DropForeignKey removes a foreign key constraint.
type DropForeignKey struct {
	TableRef
	Constraint string
}

func (op *DropForeignKey) Kind() OpKind { return OpDropForeignKey }

func (op *DropForeignKey) Validate() error {
	if err := op.validate(op.Kind()); err != nil {
		return err
	}
	if op.Constraint == "" {
		return verr.New(verr.ErrOpInvalid, "constraint name is required").
			WithTable(op.Schema, op.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Scripted objects (views, procedures, triggers)
// -----------------------------------------------------------------------------

// scriptedObject provides the shared shape of create-or-alter
// operations that carry a raw, possibly multi-batch definition body.
// The body is split on the batch separator before execution.
type scriptedObject struct {
	Schema     string
	Name       string
	Definition string
}

func (s scriptedObject) Table() string { return "" }

func (s scriptedObject) validate(kind OpKind) error {
	if s.Name == "" {
		return verr.New(verr.ErrOpInvalid, "object name is required").
			WithOperation(kind.String())
	}
	if s.Definition == "" {
		return verr.New(verr.ErrOpInvalid, "definition body is required").
			WithOperation(kind.String()).
			With("object", s.Name)
	}
	return nil
}

// CreateOrAlterView creates or replaces a view from its definition body.
type CreateOrAlterView struct{ scriptedObject }

// NewCreateOrAlterView constructs the operation.
func NewCreateOrAlterView(schema, name, definition string) *CreateOrAlterView {
	return &CreateOrAlterView{scriptedObject{Schema: schema, Name: name, Definition: definition}}
}

func (op *CreateOrAlterView) Kind() OpKind    { return OpCreateOrAlterView }
func (op *CreateOrAlterView) Validate() error { return op.validate(op.Kind()) }

// DropView removes a view.
type DropView struct {
	Schema string
	Name   string
}

func (op *DropView) Kind() OpKind  { return OpDropView }
func (op *DropView) Table() string { return "" }

func (op *DropView) Validate() error {
	if op.Name == "" {
		return verr.New(verr.ErrOpInvalid, "view name is required").
			WithOperation(op.Kind().String())
	}
	return nil
}

// CreateOrAlterProcedure creates or replaces a stored routine from its
// definition body.
type CreateOrAlterProcedure struct{ scriptedObject }

// NewCreateOrAlterProcedure constructs the operation.
func NewCreateOrAlterProcedure(schema, name, definition string) *CreateOrAlterProcedure {
	return &CreateOrAlterProcedure{scriptedObject{Schema: schema, Name: name, Definition: definition}}
}

func (op *CreateOrAlterProcedure) Kind() OpKind    { return OpCreateOrAlterProcedure }
func (op *CreateOrAlterProcedure) Validate() error { return op.validate(op.Kind()) }

// DropProcedure removes a stored routine.
type DropProcedure struct {
	Schema string
	Name   string
}

func (op *DropProcedure) Kind() OpKind  { return OpDropProcedure }
func (op *DropProcedure) Table() string { return "" }

func (op *DropProcedure) Validate() error {
	if op.Name == "" {
		return verr.New(verr.ErrOpInvalid, "procedure name is required").
			WithOperation(op.Kind().String())
	}
	return nil
}

// CreateOrAlterTrigger creates or replaces a trigger from its
// definition body. OnTable names the owning table, needed by dialects
// whose DROP TRIGGER syntax is table-scoped.
type CreateOrAlterTrigger struct {
	scriptedObject
	OnTable string
}

// NewCreateOrAlterTrigger constructs the operation.
func NewCreateOrAlterTrigger(schema, name, onTable, definition string) *CreateOrAlterTrigger {
	return &CreateOrAlterTrigger{
		scriptedObject: scriptedObject{Schema: schema, Name: name, Definition: definition},
		OnTable:        onTable,
	}
}

func (op *CreateOrAlterTrigger) Kind() OpKind    { return OpCreateOrAlterTrigger }
func (op *CreateOrAlterTrigger) Validate() error { return op.validate(op.Kind()) }

// DropTrigger removes a trigger. OnTable is required for dialects with
// table-scoped trigger names.
type DropTrigger struct {
	Schema  string
	Name    string
	OnTable string
}

func (op *DropTrigger) Kind() OpKind  { return OpDropTrigger }
func (op *DropTrigger) Table() string { return "" }

func (op *DropTrigger) Validate() error {
	if op.Name == "" {
		return verr.New(verr.ErrOpInvalid, "trigger name is required").
			WithOperation(op.Kind().String())
	}
	if op.OnTable == "" {
		return verr.New(verr.ErrOpInvalid, "trigger target table is required").
			WithOperation(op.Kind().String())
	}
	return nil
}

// -----------------------------------------------------------------------------
// Raw SQL escape hatch
// -----------------------------------------------------------------------------

// RawSQL executes a raw script (escape hatch for statements the
// operation set cannot express). Per-dialect overrides take precedence
// over SQL when set. The script may contain multiple batches.
type RawSQL struct {
	SQL string

	// Per-dialect overrides (optional)
	SQLServer string
	Postgres  string
}

func (op *RawSQL) Kind() OpKind  { return OpRawSQL }
func (op *RawSQL) Table() string { return "" }

func (op *RawSQL) Validate() error {
	if op.SQL == "" && op.SQLServer == "" && op.Postgres == "" {
		return verr.New(verr.ErrOpInvalid, "raw SQL script is required").
			WithOperation(op.Kind().String())
	}
	return nil
}
