package ops

import (
	"testing"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/verr"
)

// -----------------------------------------------------------------------------
// Validation Tests
// -----------------------------------------------------------------------------

func TestCreateTableValidate(t *testing.T) {
	t.Run("missing_definition", func(t *testing.T) {
		op := &CreateTable{}
		if err := op.Validate(); !verr.Is(err, verr.ErrOpInvalid) {
			t.Errorf("Validate() code = %v, want %v", verr.GetCode(err), verr.ErrOpInvalid)
		}
	})

	t.Run("no_columns", func(t *testing.T) {
		op := &CreateTable{Def: &model.Table{Schema: "dbo", Name: "users"}}
		if err := op.Validate(); err == nil {
			t.Error("Validate() expected error for table without columns")
		}
	})

	t.Run("valid", func(t *testing.T) {
		tbl := &model.Table{Schema: "dbo", Name: "users"}
		if err := tbl.AddColumn(&model.Column{Name: "Id", Kind: model.Int64}); err != nil {
			t.Fatalf("AddColumn() error = %v", err)
		}
		op := &CreateTable{Def: tbl}
		if err := op.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
		if op.Table() != "dbo.users" {
			t.Errorf("Table() = %q, want %q", op.Table(), "dbo.users")
		}
	})
}

func TestScriptedObjectValidate(t *testing.T) {
	t.Run("missing_definition", func(t *testing.T) {
		op := NewCreateOrAlterView("dbo", "v_open", "")
		if err := op.Validate(); err == nil {
			t.Error("Validate() expected error for empty definition")
		}
	})

	t.Run("valid", func(t *testing.T) {
		op := NewCreateOrAlterProcedure("dbo", "usp_close", "CREATE OR ALTER PROCEDURE ...")
		if err := op.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestRawSQLValidate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		op := &RawSQL{}
		if err := op.Validate(); err == nil {
			t.Error("Validate() expected error for empty raw SQL")
		}
	})

	t.Run("dialect_override_only", func(t *testing.T) {
		op := &RawSQL{SQLServer: "SELECT 1"}
		if err := op.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestAddCheckValidate(t *testing.T) {
	t.Run("unnamed", func(t *testing.T) {
		op := &AddCheck{
			TableRef: TableRef{Schema: "dbo", Name: "users"},
			Check:    &model.Check{Expression: "Age >= 0"},
		}
		if err := op.Validate(); !verr.Is(err, verr.ErrOpInvalid) {
			t.Errorf("Validate() code = %v, want %v", verr.GetCode(err), verr.ErrOpInvalid)
		}
	})

	t.Run("valid", func(t *testing.T) {
		op := &AddCheck{
			TableRef: TableRef{Schema: "dbo", Name: "users"},
			Check:    &model.Check{Name: "CK_users_1", Expression: "Age >= 0"},
		}
		if err := op.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestDropTriggerValidate(t *testing.T) {
	t.Run("missing_table", func(t *testing.T) {
		op := &DropTrigger{Schema: "app", Name: "TRG_Audit"}
		if err := op.Validate(); !verr.Is(err, verr.ErrOpInvalid) {
			t.Errorf("Validate() code = %v, want %v", verr.GetCode(err), verr.ErrOpInvalid)
		}
	})

	t.Run("valid", func(t *testing.T) {
		op := &DropTrigger{Schema: "app", Name: "TRG_Audit", OnTable: "Users"}
		if err := op.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// YAML Decoding Tests
// -----------------------------------------------------------------------------

func TestDecode(t *testing.T) {
	src := `
- op: create_table
  schema: billing
  table: invoices
  columns:
    - { name: Id, kind: int64, incremental: true }
    - { name: Number, kind: string, max_length: 40 }
    - { name: CustomerId, kind: guid }
  primary_key: { name: PK_invoices, columns: [Id] }
  checks:
    - { name: CK_invoices_1, expression: "Number <> ''" }
  foreign_keys:
    - name: FK_invoices_customers_CustomerId
      columns: [CustomerId]
      ref_schema: billing
      ref_table: customers
      ref_columns: [Id]
      on_delete: cascade
- op: add_index
  schema: billing
  table: invoices
  index: { name: IX_by_number, columns: [Number], unique: true }
- op: drop_constraint
  schema: billing
  table: invoices
  constraint: CK_invoices_1
- op: create_or_alter_view
  schema: billing
  name: v_open
  definition: |
    CREATE OR ALTER VIEW billing.v_open AS SELECT 1 AS one;
- op: raw_sql
  sqlserver: "EXEC sp_rename 'a', 'b'"
  postgres: "ALTER TABLE a RENAME TO b"
`
	operations, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(operations) != 5 {
		t.Fatalf("Decode() = %d operations, want 5", len(operations))
	}

	ct, ok := operations[0].(*CreateTable)
	if !ok {
		t.Fatalf("operations[0] = %T, want *CreateTable", operations[0])
	}
	if len(ct.Def.Columns) != 3 {
		t.Errorf("CreateTable columns = %d, want 3", len(ct.Def.Columns))
	}
	if ct.Def.PrimaryKey == nil || ct.Def.PrimaryKey.Name != "PK_invoices" {
		t.Error("CreateTable primary key not decoded")
	}
	if len(ct.Def.ForeignKeys) != 1 || ct.Def.ForeignKeys[0].OnDelete != model.Cascade {
		t.Error("CreateTable foreign key not decoded with cascade action")
	}
	if !ct.Def.Columns[0].IncrementalKey {
		t.Error("incremental column flag not decoded")
	}

	if _, ok := operations[1].(*AddIndex); !ok {
		t.Errorf("operations[1] = %T, want *AddIndex", operations[1])
	}
	if _, ok := operations[2].(*DropConstraint); !ok {
		t.Errorf("operations[2] = %T, want *DropConstraint", operations[2])
	}
	if _, ok := operations[3].(*CreateOrAlterView); !ok {
		t.Errorf("operations[3] = %T, want *CreateOrAlterView", operations[3])
	}
	raw, ok := operations[4].(*RawSQL)
	if !ok {
		t.Fatalf("operations[4] = %T, want *RawSQL", operations[4])
	}
	if raw.SQLServer == "" || raw.Postgres == "" {
		t.Error("RawSQL dialect overrides not decoded")
	}
}

func TestDecodeConstraintNameDefaults(t *testing.T) {
	src := `
- op: create_table
  schema: blog
  table: tags
  columns:
    - { name: Id, kind: int64, incremental: true }
    - { name: Slug, kind: string, max_length: 80 }
    - { name: PostId, kind: int64 }
  primary_key: { columns: [Id] }
  uniques:
    - { columns: [Slug] }
  checks:
    - { expression: "Slug <> ''" }
  indexes:
    - { columns: [PostId] }
  foreign_keys:
    - columns: [PostId]
      ref_schema: blog
      ref_table: posts
      ref_columns: [Id]
- op: add_unique
  schema: blog
  table: tags
  unique: { columns: [Slug, PostId] }
- op: add_index
  schema: blog
  table: tags
  index: { columns: [Slug] }
- op: add_foreign_key
  schema: blog
  table: tags
  foreign_key:
    columns: [PostId]
    ref_schema: blog
    ref_table: posts
    ref_columns: [Id]
`
	operations, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	ct := operations[0].(*CreateTable)
	if got := ct.Def.PrimaryKey.Name; got != "PK_tags" {
		t.Errorf("primary key name = %q, want %q", got, "PK_tags")
	}
	if got := ct.Def.Uniques[0].Name; got != "UQ_Slug" {
		t.Errorf("unique name = %q, want %q", got, "UQ_Slug")
	}
	if got := ct.Def.Checks[0].Name; got != "CK_tags_1" {
		t.Errorf("check name = %q, want %q", got, "CK_tags_1")
	}
	if got := ct.Def.Indexes[0].Name; got != "IX_PostId" {
		t.Errorf("index name = %q, want %q", got, "IX_PostId")
	}
	if got := ct.Def.ForeignKeys[0].Name; got != "FK_tags_posts_PostId" {
		t.Errorf("foreign key name = %q, want %q", got, "FK_tags_posts_PostId")
	}

	if got := operations[1].(*AddUnique).Unique.Name; got != "UQ_Slug_PostId" {
		t.Errorf("add_unique name = %q, want %q", got, "UQ_Slug_PostId")
	}
	if got := operations[2].(*AddIndex).Index.Name; got != "IX_Slug" {
		t.Errorf("add_index name = %q, want %q", got, "IX_Slug")
	}
	if got := operations[3].(*AddForeignKey).ForeignKey.Name; got != "FK_tags_posts_PostId" {
		t.Errorf("add_foreign_key name = %q, want %q", got, "FK_tags_posts_PostId")
	}
}

func TestDecodeKeyColumnsNotNull(t *testing.T) {
	src := `
- op: create_table
  schema: blog
  table: tags
  columns:
    - { name: Id, kind: int64, incremental: true, nullable: true }
    - { name: Code, kind: string, max_length: 20, nullable: true }
  primary_key: { name: PK_tags, columns: [Id, Code] }
`
	operations, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ct := operations[0].(*CreateTable)
	for _, col := range ct.Def.Columns {
		if col.Nullable {
			t.Errorf("column %q is nullable, want NOT NULL", col.Name)
		}
	}

	// Identity columns outside a key are forced NOT NULL too.
	src = `
- op: add_column
  schema: blog
  table: tags
  column: { name: Seq, kind: int64, incremental: true, nullable: true }
`
	operations, err = Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if col := operations[0].(*AddColumn).Column; col.Nullable {
		t.Errorf("incremental column %q is nullable, want NOT NULL", col.Name)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Run("unknown_op", func(t *testing.T) {
		_, err := Decode([]byte("- op: rename_database\n"))
		if !verr.Is(err, verr.ErrUnsupportedOp) {
			t.Errorf("Decode() code = %v, want %v", verr.GetCode(err), verr.ErrUnsupportedOp)
		}
	})

	t.Run("unknown_kind", func(t *testing.T) {
		src := `
- op: add_column
  schema: dbo
  table: t
  column: { name: c, kind: varchar }
`
		if _, err := Decode([]byte(src)); err == nil {
			t.Error("Decode() expected error for unknown column kind")
		}
	})

	t.Run("invalid_operation_rejected", func(t *testing.T) {
		src := `
- op: drop_column
  schema: dbo
  table: t
`
		if _, err := Decode([]byte(src)); err == nil {
			t.Error("Decode() expected validation error for drop_column without name")
		}
	})
}
