// Package model defines the in-memory relational schema model:
// schemas, tables, columns, and constraints, independent of any SQL
// dialect. The model is built once per extraction run and is passive -
// construction and lookup only.
package model

import (
	"sort"
	"strings"

	"github.com/vireodb/vireo/internal/verr"
)

// Kind is the logical column type, mapped to a dialect SQL type at
// generation time.
type Kind int

const (
	Int32 Kind = iota
	Int64
	Bool
	DateTime
	DateTimeOffset
	Guid
	Decimal
	Double
	String
	Bytes
	JSON
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case DateTime:
		return "datetime"
	case DateTimeOffset:
		return "datetimeoffset"
	case Guid:
		return "guid"
	case Decimal:
		return "decimal"
	case Double:
		return "double"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseKind resolves a logical type name to its Kind. Recognized names
// are the lowercase Kind strings plus a few common aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "int32", "int":
		return Int32, nil
	case "int64", "long":
		return Int64, nil
	case "bool", "boolean":
		return Bool, nil
	case "datetime":
		return DateTime, nil
	case "datetimeoffset":
		return DateTimeOffset, nil
	case "guid", "uuid":
		return Guid, nil
	case "decimal":
		return Decimal, nil
	case "double", "float64":
		return Double, nil
	case "string", "text":
		return String, nil
	case "bytes", "binary":
		return Bytes, nil
	case "json":
		return JSON, nil
	default:
		return 0, verr.Newf(verr.ErrUnknownKind, "unknown logical column type %q", name)
	}
}

// Action is a foreign key referential action.
type Action string

const (
	NoAction   Action = "NO ACTION"
	Restrict   Action = "RESTRICT"
	Cascade    Action = "CASCADE"
	SetNull    Action = "SET NULL"
	SetDefault Action = "SET DEFAULT"
)

// ParseAction resolves a referential action name. The empty string
// defaults to NO ACTION.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", " ")) {
	case "", "no action", "noaction":
		return NoAction, nil
	case "restrict":
		return Restrict, nil
	case "cascade":
		return Cascade, nil
	case "set null", "setnull":
		return SetNull, nil
	case "set default", "setdefault":
		return SetDefault, nil
	default:
		return "", verr.Newf(verr.ErrModelInvalid, "unknown referential action %q", name)
	}
}

// -----------------------------------------------------------------------------
// SchemaModel
// -----------------------------------------------------------------------------

// SchemaModel is the root container. Schema names are unique
// case-insensitively; iteration order is always sorted by name so
// generation is deterministic regardless of insertion order.
type SchemaModel struct {
	schemas map[string]*Schema // key: lowercased name
}

// New creates an empty SchemaModel.
func New() *SchemaModel {
	return &SchemaModel{schemas: make(map[string]*Schema)}
}

// GetOrAdd returns the schema with the given name, creating it on first
// use. Lookup is case-insensitive; the first-seen casing is kept.
func (m *SchemaModel) GetOrAdd(name string) *Schema {
	key := strings.ToLower(name)
	if s, ok := m.schemas[key]; ok {
		return s
	}
	s := &Schema{Name: name, tables: make(map[string]*Table)}
	m.schemas[key] = s
	return s
}

// Schema returns the named schema or nil.
func (m *SchemaModel) Schema(name string) *Schema {
	return m.schemas[strings.ToLower(name)]
}

// SchemaNames returns all schema names sorted alphabetically.
func (m *SchemaModel) SchemaNames() []string {
	names := make([]string, 0, len(m.schemas))
	for _, s := range m.schemas {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// Tables returns every table in the model sorted by qualified name.
func (m *SchemaModel) Tables() []*Table {
	var tables []*Table
	for _, name := range m.SchemaNames() {
		s := m.Schema(name)
		for _, tn := range s.TableNames() {
			tables = append(tables, s.Table(tn))
		}
	}
	return tables
}

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

// Schema owns the tables declared under one database schema.
type Schema struct {
	Name   string
	tables map[string]*Table // key: lowercased name
}

// AddTable registers a table. Table names are unique case-insensitively
// within a schema.
func (s *Schema) AddTable(t *Table) error {
	key := strings.ToLower(t.Name)
	if _, ok := s.tables[key]; ok {
		return verr.New(verr.ErrDuplicateName, "table already declared in schema").
			WithTable(s.Name, t.Name)
	}
	t.Schema = s.Name
	s.tables[key] = t
	return nil
}

// Table returns the named table or nil. Lookup is case-insensitive.
func (s *Schema) Table(name string) *Table {
	return s.tables[strings.ToLower(name)]
}

// TableNames returns all table names sorted alphabetically.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------
// Table
// -----------------------------------------------------------------------------

// Table is one relational table: ordered columns (declaration order is
// the generated CREATE TABLE column order) plus constraint sets.
// Entity is the originating entity name, kept for diagnostics only.
type Table struct {
	Schema string
	Name   string
	Entity string

	Columns     []*Column
	PrimaryKey  *Key
	Uniques     []*Key
	Checks      []*Check
	Indexes     []*Index
	ForeignKeys []*ForeignKey
}

// QualifiedName returns "schema.name".
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// AddColumn appends a column. Column names are unique
// case-insensitively within a table.
func (t *Table) AddColumn(c *Column) error {
	for _, existing := range t.Columns {
		if strings.EqualFold(existing.Name, c.Name) {
			return verr.New(verr.ErrDuplicateName, "column already declared on table").
				WithTable(t.Schema, t.Name).
				WithColumn(c.Name)
		}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// Column returns the named column or nil. Lookup is case-insensitive.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// SetPrimaryKey installs the primary key. A table has at most one.
func (t *Table) SetPrimaryKey(k *Key) error {
	if t.PrimaryKey != nil {
		return verr.New(verr.ErrDuplicateKey, "table already has a primary key").
			WithTable(t.Schema, t.Name)
	}
	t.PrimaryKey = k
	return nil
}

// -----------------------------------------------------------------------------
// Column
// -----------------------------------------------------------------------------

// Column is one table column. SourceName is the originating member
// name, used in error messages only.
type Column struct {
	Name       string
	SourceName string
	Kind       Kind

	Nullable       bool
	IncrementalKey bool // database-generated sequential value
	SequenceName   string
	StartWith      *int64
	IncrementBy    *int64

	MaxLength   *int // String/Bytes only
	FixedLength *int // String only; mutually exclusive with MaxLength
	Precision   *int // Decimal only
	Scale       *int // Decimal only
	Unicode     bool // String only

	Default any
}

// Validate enforces the size/precision exclusivity rules a column must
// satisfy regardless of how it was constructed.
func (c *Column) Validate() error {
	if c.MaxLength != nil && c.FixedLength != nil {
		return verr.New(verr.ErrModelInvalid, "max length and fixed length are mutually exclusive").
			WithColumn(c.Name)
	}
	switch c.Kind {
	case String:
		// Both forms allowed.
	case Bytes:
		if c.FixedLength != nil {
			return verr.New(verr.ErrModelInvalid, "fixed length is only valid on string columns").
				WithColumn(c.Name)
		}
	default:
		if c.MaxLength != nil || c.FixedLength != nil {
			return verr.Newf(verr.ErrModelInvalid, "length is not valid on %s columns", c.Kind).
				WithColumn(c.Name)
		}
	}
	if c.Kind != Decimal && (c.Precision != nil || c.Scale != nil) {
		return verr.Newf(verr.ErrModelInvalid, "precision/scale are not valid on %s columns", c.Kind).
			WithColumn(c.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Constraints
// -----------------------------------------------------------------------------

// Key is a primary key or unique constraint: a named, ordered column
// list. Column order is key order, not arbitrary.
type Key struct {
	Name    string
	Columns []string
}

// Index is a named, ordered column list with an optional uniqueness
// flag.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Check is a named raw boolean expression. The expression is an opaque
// dialect SQL fragment; the model does not validate it.
type Check struct {
	Name       string
	Expression string
}

// ForeignKey relates local columns to columns on a referenced table.
// Columns and RefColumns are positionally paired and must have the same
// length.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnDelete   Action
	OnUpdate   Action
}

// Validate checks structural well-formedness of the foreign key.
func (fk *ForeignKey) Validate() error {
	if len(fk.Columns) == 0 {
		return verr.New(verr.ErrModelInvalid, "foreign key must have at least one column").
			With("constraint", fk.Name)
	}
	if fk.RefTable == "" {
		return verr.New(verr.ErrModelInvalid, "foreign key must reference a table").
			With("constraint", fk.Name)
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return verr.New(verr.ErrModelInvalid, "foreign key column count must match referenced column count").
			With("constraint", fk.Name).
			With("columns", len(fk.Columns)).
			With("ref_columns", len(fk.RefColumns))
	}
	return nil
}
