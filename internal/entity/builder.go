package entity

import (
	"sort"
	"strings"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/strutil"
	"github.com/vireodb/vireo/internal/verr"
)

// TypeMapper resolves a member's logical type name to a column kind.
type TypeMapper func(name string) (model.Kind, error)

// Options configures model building.
type Options struct {
	// DefaultSchema is used for entities without an explicit schema
	// annotation.
	DefaultSchema string

	// RequireTable makes the builder silently skip entities that carry
	// no explicit table annotation.
	RequireTable bool

	// Types overrides the type mapping strategy. Nil means
	// model.ParseKind.
	Types TypeMapper
}

// Build converts entity definitions into a schema model. Annotation
// misuse is a fail-fast error carrying the offending entity and member.
func Build(defs []*Def, opts Options) (*model.SchemaModel, error) {
	types := opts.Types
	if types == nil {
		types = model.ParseKind
	}

	m := model.New()
	b := &builder{model: m, opts: opts, types: types, built: make(map[string]*builtEntity)}

	// Tables first, so foreign keys can reference entities declared in
	// any order.
	for _, def := range defs {
		if err := b.buildTable(def); err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		if err := b.buildForeignKeys(def); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// builtEntity records the resolution of one entity for the foreign key
// pass.
type builtEntity struct {
	def     *Def
	table   *model.Table
	columns map[string]string // member name (lowercase) -> column name
	pkCols  []string
}

type builder struct {
	model *model.SchemaModel
	opts  Options
	types TypeMapper
	built map[string]*builtEntity
}

func (b *builder) buildTable(def *Def) error {
	if def.Table == "" && b.opts.RequireTable {
		return nil
	}

	tableName := def.Table
	if tableName == "" {
		tableName = def.Name
	}
	schemaName := def.Schema
	if schemaName == "" {
		schemaName = b.opts.DefaultSchema
	}

	table := &model.Table{Schema: schemaName, Name: tableName, Entity: def.Name}

	type pkPart struct {
		ordinal int
		column  string
		name    string
	}
	var pkParts []pkPart
	uniques := newGroups()
	indexes := newGroups()
	var checks []*model.Check
	columns := make(map[string]string, len(def.Members))

	for i := range def.Members {
		member := &def.Members[i]
		if member.Name == "" {
			return verr.New(verr.ErrAnnotation, "member name is required").
				WithEntity(def.Name)
		}

		col, err := b.buildColumn(def, member, table)
		if err != nil {
			return err
		}
		if err := table.AddColumn(col); err != nil {
			return verr.Wrap(verr.GetCode(err), err, "invalid member mapping").
				WithEntity(def.Name).
				WithMember(member.Name)
		}
		columns[strings.ToLower(member.Name)] = col.Name

		if member.PrimaryKey != nil {
			pkParts = append(pkParts, pkPart{
				ordinal: member.PrimaryKey.Ordinal,
				column:  col.Name,
				name:    member.PrimaryKey.Name,
			})
		}
		if member.Unique != nil {
			uniques.add(member.Unique, col.Name)
		}
		if member.Index != nil {
			indexes.add(member.Index, col.Name)
		}
		if member.Check != nil {
			if member.Check.Expression == "" {
				return verr.New(verr.ErrAnnotation, "check expression is required").
					WithEntity(def.Name).
					WithMember(member.Name)
			}
			checks = append(checks, &model.Check{Name: member.Check.Name, Expression: member.Check.Expression})
		}
	}

	if len(pkParts) > 0 {
		sort.SliceStable(pkParts, func(i, j int) bool { return pkParts[i].ordinal < pkParts[j].ordinal })
		name := ""
		cols := make([]string, 0, len(pkParts))
		for _, p := range pkParts {
			if name == "" {
				name = p.name
			}
			cols = append(cols, p.column)
		}
		if name == "" {
			name = strutil.PrimaryKeyName(table.Name)
		}
		if err := table.SetPrimaryKey(&model.Key{Name: name, Columns: cols}); err != nil {
			return verr.Wrap(verr.GetCode(err), err, "invalid primary key").
				WithEntity(def.Name)
		}
		// Key membership forces non-nullability regardless of the
		// member's own annotation.
		for _, colName := range cols {
			if col := table.Column(colName); col != nil {
				col.Nullable = false
			}
		}
	}

	for _, g := range uniques.ordered() {
		name := g.name
		if name == "" {
			name = strutil.UniqueName(g.group)
		}
		table.Uniques = append(table.Uniques, &model.Key{Name: name, Columns: g.columns()})
	}

	for _, g := range indexes.ordered() {
		name := g.name
		if name == "" {
			name = strutil.IndexName(g.group)
		}
		table.Indexes = append(table.Indexes, &model.Index{Name: name, Columns: g.columns(), Unique: g.unique})
	}

	// Entity-level checks precede member-level ones; the conventional
	// counter covers both in that order.
	allChecks := make([]*model.Check, 0, len(def.Checks)+len(checks))
	for i := range def.Checks {
		c := def.Checks[i]
		if c.Expression == "" {
			return verr.New(verr.ErrAnnotation, "check expression is required").
				WithEntity(def.Name)
		}
		allChecks = append(allChecks, &model.Check{Name: c.Name, Expression: c.Expression})
	}
	allChecks = append(allChecks, checks...)
	for i, c := range allChecks {
		if c.Name == "" {
			c.Name = strutil.CheckName(table.Name, i+1)
		}
	}
	table.Checks = allChecks

	schema := b.model.GetOrAdd(schemaName)
	if err := schema.AddTable(table); err != nil {
		return verr.Wrap(verr.GetCode(err), err, "conflicting table mapping").
			WithEntity(def.Name)
	}

	var pkCols []string
	if table.PrimaryKey != nil {
		pkCols = table.PrimaryKey.Columns
	}
	b.built[strings.ToLower(def.Name)] = &builtEntity{def: def, table: table, columns: columns, pkCols: pkCols}
	return nil
}

func (b *builder) buildColumn(def *Def, member *MemberDef, table *model.Table) (*model.Column, error) {
	if member.Type == "" {
		return nil, verr.New(verr.ErrAnnotation, "member type is required").
			WithEntity(def.Name).
			WithMember(member.Name)
	}
	kind, err := b.types(member.Type)
	if err != nil {
		// Custom mappers may return plain errors without a code.
		code := verr.GetCode(err)
		if code == "" {
			code = verr.ErrUnknownKind
		}
		return nil, verr.Wrap(code, err, "unmappable member type").
			WithEntity(def.Name).
			WithMember(member.Name)
	}

	colName := member.Column
	if colName == "" {
		colName = member.Name
	}

	col := &model.Column{
		Name:        colName,
		SourceName:  member.Name,
		Kind:        kind,
		Nullable:    !member.NotNull,
		MaxLength:   member.MaxLength,
		FixedLength: member.FixedLength,
		Precision:   member.Precision,
		Scale:       member.Scale,
		Default:     member.Default,
	}

	if kind == model.String {
		col.Unicode = member.Unicode == nil || *member.Unicode
	} else if member.Unicode != nil {
		return nil, verr.New(verr.ErrAnnotation, "unicode applies only to string members").
			WithEntity(def.Name).
			WithMember(member.Name)
	}

	if inc := member.Incremental; inc != nil {
		col.IncrementalKey = true
		col.Nullable = false
		col.StartWith = inc.StartWith
		col.IncrementBy = inc.IncrementBy
		switch {
		case inc.Sequence != "":
			col.SequenceName = inc.Sequence
		case inc.UseSequence:
			col.SequenceName = strutil.SequenceName(table.Name, colName)
		}
	}

	return col, nil
}

func (b *builder) buildForeignKeys(def *Def) error {
	local, ok := b.built[strings.ToLower(def.Name)]
	if !ok {
		// Skipped by RequireTable.
		return nil
	}

	for i := range def.Members {
		member := &def.Members[i]
		if member.ForeignKey == nil {
			continue
		}
		fkDef := member.ForeignKey

		if fkDef.Entity == "" {
			return verr.New(verr.ErrAnnotation, "foreign key must name a referenced entity").
				WithEntity(def.Name).
				WithMember(member.Name)
		}
		ref, ok := b.built[strings.ToLower(fkDef.Entity)]
		if !ok {
			return verr.New(verr.ErrMissingReference, "referenced entity is not mapped").
				WithEntity(def.Name).
				WithMember(member.Name).
				With("referenced_entity", fkDef.Entity)
		}

		refColumn, err := ref.resolveColumn(fkDef)
		if err != nil {
			return verr.Wrap(verr.GetCode(err), err, "unresolvable foreign key target").
				WithEntity(def.Name).
				WithMember(member.Name)
		}

		localColumn := local.columns[strings.ToLower(member.Name)]

		onDelete, err := model.ParseAction(fkDef.OnDelete)
		if err != nil {
			return verr.Wrap(verr.GetCode(err), err, "invalid on-delete action").
				WithEntity(def.Name).
				WithMember(member.Name)
		}
		onUpdate, err := model.ParseAction(fkDef.OnUpdate)
		if err != nil {
			return verr.Wrap(verr.GetCode(err), err, "invalid on-update action").
				WithEntity(def.Name).
				WithMember(member.Name)
		}

		name := fkDef.Name
		if name == "" {
			name = strutil.ForeignKeyName(local.table.Name, ref.table.Name, localColumn)
		}

		fk := &model.ForeignKey{
			Name:       name,
			Columns:    []string{localColumn},
			RefSchema:  ref.table.Schema,
			RefTable:   ref.table.Name,
			RefColumns: []string{refColumn},
			OnDelete:   onDelete,
			OnUpdate:   onUpdate,
		}
		if err := fk.Validate(); err != nil {
			return err
		}
		local.table.ForeignKeys = append(local.table.ForeignKeys, fk)
	}
	return nil
}

// resolveColumn finds the referenced column for a foreign key: the
// named member, or the referenced entity's single primary key column.
func (e *builtEntity) resolveColumn(fkDef *ForeignKeyDef) (string, error) {
	if fkDef.Member != "" {
		col, ok := e.columns[strings.ToLower(fkDef.Member)]
		if !ok {
			return "", verr.New(verr.ErrMissingReference, "referenced member does not exist").
				With("referenced_entity", e.def.Name).
				With("referenced_member", fkDef.Member)
		}
		return col, nil
	}
	if len(e.pkCols) != 1 {
		return "", verr.New(verr.ErrMissingReference, "referenced entity needs a single-column primary key when no member is named").
			With("referenced_entity", e.def.Name).
			With("key_columns", len(e.pkCols))
	}
	return e.pkCols[0], nil
}

// -----------------------------------------------------------------------------
// Group accumulation (unique constraints and indexes)
// -----------------------------------------------------------------------------

type groupPart struct {
	ordinal int
	column  string
}

type group struct {
	group  string
	name   string
	unique bool
	parts  []groupPart
}

func (g *group) columns() []string {
	sort.SliceStable(g.parts, func(i, j int) bool { return g.parts[i].ordinal < g.parts[j].ordinal })
	cols := make([]string, len(g.parts))
	for i, p := range g.parts {
		cols[i] = p.column
	}
	return cols
}

// groups accumulates grouped members in first-seen order.
type groups struct {
	byName map[string]*group
	order  []*group
}

func newGroups() *groups {
	return &groups{byName: make(map[string]*group)}
}

func (gs *groups) add(def *GroupDef, column string) {
	key := def.Group
	if key == "" {
		key = column
	}
	g, ok := gs.byName[strings.ToLower(key)]
	if !ok {
		g = &group{group: key}
		gs.byName[strings.ToLower(key)] = g
		gs.order = append(gs.order, g)
	}
	if g.name == "" {
		g.name = def.Name
	}
	if def.Unique {
		g.unique = true
	}
	g.parts = append(g.parts, groupPart{ordinal: def.Ordinal, column: column})
}

func (gs *groups) ordered() []*group {
	return gs.order
}
