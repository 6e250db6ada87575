// Package entity defines the declarative annotation surface for data
// entities and builds schema models from it.
//
// An entity description is plain data: it can be hand-declared in Go,
// generated, or parsed from YAML. The builder reads each description
// once and produces a model.SchemaModel; nothing here touches a
// database.
package entity

import (
	"gopkg.in/yaml.v3"

	"github.com/vireodb/vireo/internal/verr"
)

// Def describes one entity: the table it maps to and its members.
type Def struct {
	// Name is the entity name, used as the table name when Table is
	// empty and as the reference target for foreign keys.
	Name   string `yaml:"name"`
	Table  string `yaml:"table,omitempty"`
	Schema string `yaml:"schema,omitempty"`

	// Checks holds entity-level check expressions.
	Checks []CheckDef `yaml:"checks,omitempty"`

	Members []MemberDef `yaml:"members"`
}

// MemberDef describes one mappable member of an entity.
type MemberDef struct {
	// Name is the source member name, used for diagnostics and as the
	// column name when Column is empty.
	Name   string `yaml:"name"`
	Column string `yaml:"column,omitempty"`

	// Type is the logical column type name, resolved through the
	// builder's type mapper (default: model.ParseKind).
	Type string `yaml:"type"`

	// NotNull forces the column non-nullable. Columns are nullable by
	// default unless they are part of the primary key or incremental.
	NotNull bool `yaml:"not_null,omitempty"`

	MaxLength   *int  `yaml:"max_length,omitempty"`
	FixedLength *int  `yaml:"fixed_length,omitempty"`
	Precision   *int  `yaml:"precision,omitempty"`
	Scale       *int  `yaml:"scale,omitempty"`
	Unicode     *bool `yaml:"unicode,omitempty"` // strings default to unicode
	Default     any   `yaml:"default,omitempty"`

	PrimaryKey  *KeyPartDef     `yaml:"primary_key,omitempty"`
	Unique      *GroupDef       `yaml:"unique,omitempty"`
	Index       *GroupDef       `yaml:"index,omitempty"`
	Check       *CheckDef       `yaml:"check,omitempty"`
	ForeignKey  *ForeignKeyDef  `yaml:"foreign_key,omitempty"`
	Incremental *IncrementalDef `yaml:"incremental,omitempty"`
}

// KeyPartDef marks a member as part of the primary key.
type KeyPartDef struct {
	// Ordinal orders the member within the key. Ties keep declaration
	// order.
	Ordinal int    `yaml:"ordinal,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

// GroupDef places a member into a named unique constraint or index
// group. Members sharing a group form one multi-column object, ordered
// by Ordinal.
type GroupDef struct {
	// Group defaults to the member's column name, yielding a
	// single-column constraint.
	Group   string `yaml:"group,omitempty"`
	Ordinal int    `yaml:"ordinal,omitempty"`
	Name    string `yaml:"name,omitempty"`

	// Unique applies to index groups only.
	Unique bool `yaml:"unique,omitempty"`
}

// CheckDef is a raw boolean SQL expression with an optional explicit
// constraint name.
type CheckDef struct {
	Name       string `yaml:"name,omitempty"`
	Expression string `yaml:"expression"`
}

// ForeignKeyDef relates a member to a member of another entity.
type ForeignKeyDef struct {
	// Entity is the referenced entity's Name (required).
	Entity string `yaml:"entity"`
	// Member is the referenced member name. Empty means the referenced
	// entity's single primary key column.
	Member   string `yaml:"member,omitempty"`
	Name     string `yaml:"name,omitempty"`
	OnDelete string `yaml:"on_delete,omitempty"`
	OnUpdate string `yaml:"on_update,omitempty"`
}

// IncrementalDef marks a member as a database-generated sequential
// value.
type IncrementalDef struct {
	// Sequence names an explicit backing sequence. UseSequence without
	// a name picks the conventional SEQ_<table>_<column>.
	Sequence    string `yaml:"sequence,omitempty"`
	UseSequence bool   `yaml:"use_sequence,omitempty"`
	StartWith   *int64 `yaml:"start_with,omitempty"`
	IncrementBy *int64 `yaml:"increment_by,omitempty"`
}

// Parse decodes a YAML document holding a list of entity definitions.
func Parse(data []byte) ([]*Def, error) {
	var defs []*Def
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, verr.Wrap(verr.ErrAnnotation, err, "invalid entity definition document")
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, verr.New(verr.ErrAnnotation, "entity name is required")
		}
	}
	return defs, nil
}
