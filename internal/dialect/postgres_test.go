package dialect

import (
	"testing"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/verr"
)

func TestPostgresQuoting(t *testing.T) {
	d := Postgres()

	cases := []struct {
		in   string
		want string
	}{
		{"Users", `"Users"`},
		{`weird"name`, `"weird""name"`},
		{"", `""`},
	}
	for _, tc := range cases {
		if got := d.QuoteIdent(tc.in); got != tc.want {
			t.Errorf("QuoteIdent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := d.QualifyTable("app", "Users"); got != `"app"."Users"` {
		t.Errorf("QualifyTable = %q", got)
	}
	if got := d.Placeholder(3); got != "$3" {
		t.Errorf("Placeholder = %q", got)
	}
	if got := d.BatchSeparator(); got != "" {
		t.Errorf("BatchSeparator = %q, want empty", got)
	}
}

func TestPostgresColumnType(t *testing.T) {
	d := Postgres()

	cases := []struct {
		name string
		col  *model.Column
		want string
	}{
		{"int32", &model.Column{Kind: model.Int32}, "INTEGER"},
		{"int64", &model.Column{Kind: model.Int64}, "BIGINT"},
		{"bool", &model.Column{Kind: model.Bool}, "BOOLEAN"},
		{"datetime", &model.Column{Kind: model.DateTime}, "TIMESTAMP"},
		{"datetimeoffset", &model.Column{Kind: model.DateTimeOffset}, "TIMESTAMPTZ"},
		{"guid", &model.Column{Kind: model.Guid}, "UUID"},
		{"double", &model.Column{Kind: model.Double}, "DOUBLE PRECISION"},
		{"decimal default facets", &model.Column{Kind: model.Decimal}, "NUMERIC(18, 2)"},
		{"decimal explicit facets", &model.Column{Kind: model.Decimal, Precision: intp(10), Scale: intp(4)}, "NUMERIC(10, 4)"},
		{"string unbounded", &model.Column{Kind: model.String, Unicode: true}, "TEXT"},
		{"string bounded", &model.Column{Kind: model.String, MaxLength: intp(200)}, "VARCHAR(200)"},
		{"string fixed", &model.Column{Kind: model.String, FixedLength: intp(2)}, "CHAR(2)"},
		{"bytes ignores length facet", &model.Column{Kind: model.Bytes, MaxLength: intp(16)}, "BYTEA"},
		{"json", &model.Column{Kind: model.JSON}, "JSONB"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.ColumnType(tc.col)
			if err != nil {
				t.Fatalf("ColumnType: %v", err)
			}
			if got != tc.want {
				t.Errorf("ColumnType = %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		_, err := d.ColumnType(&model.Column{Name: "x", Kind: model.Kind(99)})
		if !verr.Is(err, verr.ErrUnknownKind) {
			t.Fatalf("ColumnType error = %v, want %s", err, verr.ErrUnknownKind)
		}
	})
}

func TestPostgresCreateTable(t *testing.T) {
	d := Postgres()
	table := &model.Table{
		Schema: "app",
		Name:   "Users",
		Columns: []*model.Column{
			{Name: "Id", Kind: model.Int64, IncrementalKey: true},
			{Name: "Name", Kind: model.String, MaxLength: intp(200)},
			{Name: "Bio", Kind: model.String, Nullable: true},
			{Name: "Active", Kind: model.Bool, Default: true},
		},
		PrimaryKey: &model.Key{Name: "PK_Users", Columns: []string{"Id"}},
	}

	got, err := d.CreateTable(table, true)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	want := `CREATE TABLE IF NOT EXISTS "app"."Users" (` + "\n" +
		`    "Id" BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL,` + "\n" +
		`    "Name" VARCHAR(200) NOT NULL,` + "\n" +
		`    "Bio" TEXT,` + "\n" +
		`    "Active" BOOLEAN NOT NULL DEFAULT TRUE,` + "\n" +
		`    CONSTRAINT "PK_Users" PRIMARY KEY ("Id")` + "\n" +
		")"
	if got != want {
		t.Errorf("CreateTable =\n%s\nwant:\n%s", got, want)
	}
}

func TestPostgresIdentityOptions(t *testing.T) {
	d := Postgres()
	col := &model.Column{Name: "Id", Kind: model.Int64, IncrementalKey: true, StartWith: int64p(100), IncrementBy: int64p(5)}

	got, err := d.AddColumn("app", "Orders", col)
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	want := `ALTER TABLE "app"."Orders" ADD COLUMN "Id" BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH 100 INCREMENT BY 5) NOT NULL`
	if got != want {
		t.Errorf("AddColumn = %q, want %q", got, want)
	}
}

func TestPostgresSequences(t *testing.T) {
	d := Postgres()

	got := d.CreateSequence("app", "SEQ_Orders_Number", 100, 5, true)
	want := `CREATE SEQUENCE IF NOT EXISTS "app"."SEQ_Orders_Number" AS BIGINT START WITH 100 INCREMENT BY 5`
	if got != want {
		t.Errorf("CreateSequence = %q, want %q", got, want)
	}

	col := &model.Column{Name: "Number", Kind: model.Int64, SequenceName: "SEQ_Orders_Number"}
	gotCol, err := d.AddColumn("app", "Orders", col)
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	wantCol := `ALTER TABLE "app"."Orders" ADD COLUMN "Number" BIGINT NOT NULL DEFAULT nextval('"app"."SEQ_Orders_Number"')`
	if gotCol != wantCol {
		t.Errorf("AddColumn = %q, want %q", gotCol, wantCol)
	}
}

func TestPostgresConstraints(t *testing.T) {
	d := Postgres()

	t.Run("unique guarded uses DO block", func(t *testing.T) {
		got := d.AddUnique("app", "Users", &model.Key{Name: "UQ_Email", Columns: []string{"Email"}}, true)
		want := "DO $$\n" +
			"BEGIN\n" +
			"    IF NOT EXISTS (\n" +
			"        SELECT 1 FROM pg_catalog.pg_constraint\n" +
			`        WHERE conname = 'UQ_Email' AND conrelid = '"app"."Users"'::regclass` + "\n" +
			"    ) THEN\n" +
			`        ALTER TABLE "app"."Users" ADD CONSTRAINT "UQ_Email" UNIQUE ("Email");` + "\n" +
			"    END IF;\n" +
			"END $$"
		if got != want {
			t.Errorf("AddUnique =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("check unguarded", func(t *testing.T) {
		got := d.AddCheck("app", "Users", &model.Check{Name: "CK_Users_1", Expression: `"Age" >= 0`}, false)
		want := `ALTER TABLE "app"."Users" ADD CONSTRAINT "CK_Users_1" CHECK ("Age" >= 0)`
		if got != want {
			t.Errorf("AddCheck = %q, want %q", got, want)
		}
	})

	t.Run("index guarded uses IF NOT EXISTS", func(t *testing.T) {
		got := d.AddIndex("app", "Users", &model.Index{Name: "IX_Email", Columns: []string{"Email"}, Unique: true}, true)
		want := `CREATE UNIQUE INDEX IF NOT EXISTS "IX_Email" ON "app"."Users" ("Email")`
		if got != want {
			t.Errorf("AddIndex = %q, want %q", got, want)
		}
	})

	t.Run("foreign key with actions", func(t *testing.T) {
		fk := &model.ForeignKey{
			Name:       "FK_Orders_Users_UserId",
			Columns:    []string{"UserId"},
			RefTable:   "Users",
			RefColumns: []string{"Id"},
			OnDelete:   model.SetNull,
			OnUpdate:   model.Cascade,
		}
		got, err := d.AddForeignKey("app", "Orders", fk, false)
		if err != nil {
			t.Fatalf("AddForeignKey: %v", err)
		}
		want := `ALTER TABLE "app"."Orders" ADD CONSTRAINT "FK_Orders_Users_UserId" FOREIGN KEY ("UserId") REFERENCES "app"."Users" ("Id") ON DELETE SET NULL ON UPDATE CASCADE`
		if got != want {
			t.Errorf("AddForeignKey = %q, want %q", got, want)
		}
	})
}

func TestPostgresDrops(t *testing.T) {
	d := Postgres()

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"table", d.DropTable("app", "Users"), `DROP TABLE "app"."Users"`},
		{"column", d.DropColumn("app", "Users", "Bio"), `ALTER TABLE "app"."Users" DROP COLUMN "Bio"`},
		{"constraint", d.DropConstraint("app", "Users", "UQ_Email"), `ALTER TABLE "app"."Users" DROP CONSTRAINT "UQ_Email"`},
		{"index is schema-scoped", d.DropIndex("app", "Users", "IX_Email"), `DROP INDEX "app"."IX_Email"`},
		{"view", d.DropView("app", "ActiveUsers"), `DROP VIEW IF EXISTS "app"."ActiveUsers"`},
		{"procedure", d.DropProcedure("app", "PurgeUsers"), `DROP PROCEDURE IF EXISTS "app"."PurgeUsers"`},
		{"trigger names owning table", d.DropTrigger("app", "TRG_Audit", "Users"), `DROP TRIGGER IF EXISTS "TRG_Audit" ON "app"."Users"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestPostgresRawSQL(t *testing.T) {
	d := Postgres()

	op := &ops.RawSQL{SQL: "SELECT 1", Postgres: "SELECT 2"}
	if got := d.RawSQLFor(op); got != "SELECT 2" {
		t.Errorf("RawSQLFor = %q, want dialect override", got)
	}

	op = &ops.RawSQL{SQL: "SELECT 1", SQLServer: "SELECT TOP 1 1"}
	if got := d.RawSQLFor(op); got != "SELECT 1" {
		t.Errorf("RawSQLFor = %q, want generic SQL", got)
	}
}
