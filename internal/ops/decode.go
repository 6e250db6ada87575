package ops

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/strutil"
	"github.com/vireodb/vireo/internal/verr"
)

// Migration operation files are YAML lists of operation documents:
//
//	- op: create_table
//	  schema: billing
//	  table: invoices
//	  columns:
//	    - { name: Id, kind: int64, incremental: true }
//	    - { name: Number, kind: string, max_length: 40 }
//	  primary_key: { columns: [Id] }
//	- op: add_foreign_key
//	  schema: billing
//	  table: invoices
//	  foreign_key:
//	    name: FK_invoices_customers_CustomerId
//	    columns: [CustomerId]
//	    ref_schema: billing
//	    ref_table: customers
//	    ref_columns: [Id]
//	    on_delete: cascade

type document struct {
	Op     string `yaml:"op"`
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`

	// Scripted objects
	Name       string `yaml:"name"`
	OnTable    string `yaml:"on_table"`
	Definition string `yaml:"definition"`

	// Table/column payloads
	Columns    []*columnDoc `yaml:"columns"`
	Column     *columnDoc   `yaml:"column"`
	PrimaryKey *keyDoc      `yaml:"primary_key"`
	Uniques    []*keyDoc    `yaml:"uniques"`
	Checks     []*checkDoc  `yaml:"checks"`
	Indexes    []*indexDoc  `yaml:"indexes"`

	Unique *keyDoc   `yaml:"unique"`
	Check  *checkDoc `yaml:"check"`
	Index  *indexDoc `yaml:"index"`

	ForeignKeys []*fkDoc `yaml:"foreign_keys"`
	ForeignKey  *fkDoc   `yaml:"foreign_key"`

	Constraint string `yaml:"constraint"`

	// Raw SQL
	SQL       string `yaml:"sql"`
	SQLServer string `yaml:"sqlserver"`
	Postgres  string `yaml:"postgres"`
}

type columnDoc struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Nullable    bool   `yaml:"nullable"`
	Incremental bool   `yaml:"incremental"`
	Sequence    string `yaml:"sequence"`
	StartWith   *int64 `yaml:"start_with"`
	IncrementBy *int64 `yaml:"increment_by"`
	MaxLength   *int   `yaml:"max_length"`
	FixedLength *int   `yaml:"fixed_length"`
	Precision   *int   `yaml:"precision"`
	Scale       *int   `yaml:"scale"`
	Unicode     bool   `yaml:"unicode"`
	Default     any    `yaml:"default"`
}

type keyDoc struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type indexDoc struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

type checkDoc struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

type fkDoc struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	RefSchema  string   `yaml:"ref_schema"`
	RefTable   string   `yaml:"ref_table"`
	RefColumns []string `yaml:"ref_columns"`
	OnDelete   string   `yaml:"on_delete"`
	OnUpdate   string   `yaml:"on_update"`
}

// Decode parses a YAML migration file into its ordered operation list.
// Every decoded operation is validated before it is returned.
func Decode(data []byte) ([]Operation, error) {
	var docs []document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, verr.Wrap(verr.ErrOpInvalid, err, "failed to parse migration file")
	}

	operations := make([]Operation, 0, len(docs))
	for i, doc := range docs {
		op, err := doc.toOperation()
		if err != nil {
			// Keep the inner code: unsupported-operation and
			// malformed-operation failures are distinct classes.
			code := verr.GetCode(err)
			if code == "" {
				code = verr.ErrOpInvalid
			}
			return nil, verr.Wrapf(code, err, "invalid operation document %d", i+1)
		}
		if err := op.Validate(); err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	return operations, nil
}

func (d document) toOperation() (Operation, error) {
	ref := TableRef{Schema: d.Schema, Name: d.Table}

	switch d.Op {
	case "create_table":
		return d.toCreateTable()

	case "drop_table":
		return &DropTable{TableRef: ref}, nil

	case "add_column":
		col, err := d.Column.toColumn()
		if err != nil {
			return nil, err
		}
		return &AddColumn{TableRef: ref, Column: col}, nil

	case "drop_column":
		return &DropColumn{TableRef: ref, Column: d.Name}, nil

	case "add_unique":
		if d.Unique == nil {
			return nil, verr.New(verr.ErrOpInvalid, "add_unique requires a unique block")
		}
		key := d.Unique.toKey()
		if key.Name == "" {
			key.Name = strutil.UniqueName(strutil.JoinColumns(key.Columns))
		}
		return &AddUnique{TableRef: ref, Unique: key}, nil

	case "add_check":
		if d.Check == nil {
			return nil, verr.New(verr.ErrOpInvalid, "add_check requires a check block")
		}
		return &AddCheck{TableRef: ref, Check: &model.Check{Name: d.Check.Name, Expression: d.Check.Expression}}, nil

	case "drop_constraint":
		return &DropConstraint{TableRef: ref, Constraint: d.Constraint}, nil

	case "add_index":
		if d.Index == nil {
			return nil, verr.New(verr.ErrOpInvalid, "add_index requires an index block")
		}
		idx := d.Index.toIndex()
		if idx.Name == "" {
			idx.Name = strutil.IndexName(strutil.JoinColumns(idx.Columns))
		}
		return &AddIndex{TableRef: ref, Index: idx}, nil

	case "drop_index":
		return &DropIndex{TableRef: ref, Index: d.Name}, nil

	case "add_foreign_key":
		if d.ForeignKey == nil {
			return nil, verr.New(verr.ErrOpInvalid, "add_foreign_key requires a foreign_key block")
		}
		fk, err := d.ForeignKey.toForeignKey()
		if err != nil {
			return nil, err
		}
		defaultForeignKeyName(d.Table, fk)
		return &AddForeignKey{TableRef: ref, ForeignKey: fk}, nil

	case "drop_foreign_key":
		return &DropForeignKey{TableRef: ref, Constraint: d.Constraint}, nil

	case "create_or_alter_view":
		return NewCreateOrAlterView(d.Schema, d.Name, d.Definition), nil

	case "drop_view":
		return &DropView{Schema: d.Schema, Name: d.Name}, nil

	case "create_or_alter_procedure":
		return NewCreateOrAlterProcedure(d.Schema, d.Name, d.Definition), nil

	case "drop_procedure":
		return &DropProcedure{Schema: d.Schema, Name: d.Name}, nil

	case "create_or_alter_trigger":
		return NewCreateOrAlterTrigger(d.Schema, d.Name, d.OnTable, d.Definition), nil

	case "drop_trigger":
		return &DropTrigger{Schema: d.Schema, Name: d.Name, OnTable: d.OnTable}, nil

	case "raw_sql":
		return &RawSQL{SQL: d.SQL, SQLServer: d.SQLServer, Postgres: d.Postgres}, nil

	default:
		return nil, verr.Newf(verr.ErrUnsupportedOp, "unknown operation %q", d.Op)
	}
}

func (d document) toCreateTable() (Operation, error) {
	tbl := &model.Table{Schema: d.Schema, Name: d.Table}
	for _, cd := range d.Columns {
		col, err := cd.toColumn()
		if err != nil {
			return nil, err
		}
		if err := tbl.AddColumn(col); err != nil {
			return nil, err
		}
	}
	if d.PrimaryKey != nil {
		pk := d.PrimaryKey.toKey()
		if pk.Name == "" {
			pk.Name = strutil.PrimaryKeyName(d.Table)
		}
		if err := tbl.SetPrimaryKey(pk); err != nil {
			return nil, err
		}
		// Key members cannot be nullable.
		for _, name := range pk.Columns {
			if col := tbl.Column(name); col != nil {
				col.Nullable = false
			}
		}
	}
	for _, u := range d.Uniques {
		key := u.toKey()
		if key.Name == "" {
			key.Name = strutil.UniqueName(strutil.JoinColumns(key.Columns))
		}
		tbl.Uniques = append(tbl.Uniques, key)
	}
	for i, c := range d.Checks {
		name := c.Name
		if name == "" {
			name = strutil.CheckName(d.Table, i+1)
		}
		tbl.Checks = append(tbl.Checks, &model.Check{Name: name, Expression: c.Expression})
	}
	for _, ix := range d.Indexes {
		idx := ix.toIndex()
		if idx.Name == "" {
			idx.Name = strutil.IndexName(strutil.JoinColumns(idx.Columns))
		}
		tbl.Indexes = append(tbl.Indexes, idx)
	}
	for _, f := range d.ForeignKeys {
		fk, err := f.toForeignKey()
		if err != nil {
			return nil, err
		}
		defaultForeignKeyName(d.Table, fk)
		tbl.ForeignKeys = append(tbl.ForeignKeys, fk)
	}
	return &CreateTable{Def: tbl}, nil
}

// defaultForeignKeyName fills in the conventional constraint name when the
// document leaves it blank.
func defaultForeignKeyName(table string, fk *model.ForeignKey) {
	if fk.Name == "" && len(fk.Columns) > 0 {
		fk.Name = strutil.ForeignKeyName(table, fk.RefTable, fk.Columns[0])
	}
}

func (c *columnDoc) toColumn() (*model.Column, error) {
	if c == nil {
		return nil, verr.New(verr.ErrOpInvalid, "column block is required")
	}
	kind, err := model.ParseKind(c.Kind)
	if err != nil {
		return nil, verr.Wrapf(verr.ErrOpInvalid, err, "column %q", c.Name)
	}
	nullable := c.Nullable
	if c.Incremental {
		// Identity columns are always NOT NULL.
		nullable = false
	}
	return &model.Column{
		Name:           c.Name,
		SourceName:     c.Name,
		Kind:           kind,
		Nullable:       nullable,
		IncrementalKey: c.Incremental,
		SequenceName:   c.Sequence,
		StartWith:      c.StartWith,
		IncrementBy:    c.IncrementBy,
		MaxLength:      c.MaxLength,
		FixedLength:    c.FixedLength,
		Precision:      c.Precision,
		Scale:          c.Scale,
		Unicode:        c.Unicode,
		Default:        c.Default,
	}, nil
}

func (k *keyDoc) toKey() *model.Key {
	return &model.Key{Name: k.Name, Columns: k.Columns}
}

func (ix *indexDoc) toIndex() *model.Index {
	return &model.Index{Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique}
}

func (f *fkDoc) toForeignKey() (*model.ForeignKey, error) {
	onDelete, err := model.ParseAction(f.OnDelete)
	if err != nil {
		return nil, fmt.Errorf("foreign key %q: %w", f.Name, err)
	}
	onUpdate, err := model.ParseAction(f.OnUpdate)
	if err != nil {
		return nil, fmt.Errorf("foreign key %q: %w", f.Name, err)
	}
	return &model.ForeignKey{
		Name:       f.Name,
		Columns:    f.Columns,
		RefSchema:  f.RefSchema,
		RefTable:   f.RefTable,
		RefColumns: f.RefColumns,
		OnDelete:   onDelete,
		OnUpdate:   onUpdate,
	}, nil
}
