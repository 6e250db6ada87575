package dialect

import (
	"testing"

	"github.com/vireodb/vireo/internal/model"
	"github.com/vireodb/vireo/internal/ops"
	"github.com/vireodb/vireo/internal/verr"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func TestSQLServerQuoting(t *testing.T) {
	d := SQLServer()

	cases := []struct {
		in   string
		want string
	}{
		{"Users", "[Users]"},
		{"weird]name", "[weird]]name]"},
		{"", "[]"},
	}
	for _, tc := range cases {
		if got := d.QuoteIdent(tc.in); got != tc.want {
			t.Errorf("QuoteIdent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := d.QualifyTable("app", "Users"); got != "[app].[Users]" {
		t.Errorf("QualifyTable = %q", got)
	}
	if got := d.QualifyTable("", "Users"); got != "[Users]" {
		t.Errorf("QualifyTable without schema = %q", got)
	}
	if got := d.QuoteLiteral("O'Brien"); got != "'O''Brien'" {
		t.Errorf("QuoteLiteral = %q", got)
	}
	if got := d.Placeholder(3); got != "@p3" {
		t.Errorf("Placeholder = %q", got)
	}
	if got := d.BatchSeparator(); got != "GO" {
		t.Errorf("BatchSeparator = %q", got)
	}
}

func TestSQLServerColumnType(t *testing.T) {
	d := SQLServer()

	cases := []struct {
		name string
		col  *model.Column
		want string
	}{
		{"int32", &model.Column{Kind: model.Int32}, "INT"},
		{"int64", &model.Column{Kind: model.Int64}, "BIGINT"},
		{"bool", &model.Column{Kind: model.Bool}, "BIT"},
		{"datetime", &model.Column{Kind: model.DateTime}, "DATETIME2"},
		{"datetimeoffset", &model.Column{Kind: model.DateTimeOffset}, "DATETIMEOFFSET"},
		{"guid", &model.Column{Kind: model.Guid}, "UNIQUEIDENTIFIER"},
		{"double", &model.Column{Kind: model.Double}, "FLOAT"},
		{"decimal default facets", &model.Column{Kind: model.Decimal}, "DECIMAL(18, 2)"},
		{"decimal explicit facets", &model.Column{Kind: model.Decimal, Precision: intp(10), Scale: intp(4)}, "DECIMAL(10, 4)"},
		{"string unbounded unicode", &model.Column{Kind: model.String, Unicode: true}, "NVARCHAR(MAX)"},
		{"string unbounded ansi", &model.Column{Kind: model.String}, "VARCHAR(MAX)"},
		{"string bounded unicode", &model.Column{Kind: model.String, Unicode: true, MaxLength: intp(200)}, "NVARCHAR(200)"},
		{"string fixed ansi", &model.Column{Kind: model.String, FixedLength: intp(2)}, "CHAR(2)"},
		{"string fixed unicode", &model.Column{Kind: model.String, Unicode: true, FixedLength: intp(2)}, "NCHAR(2)"},
		{"bytes unbounded", &model.Column{Kind: model.Bytes}, "VARBINARY(MAX)"},
		{"bytes bounded", &model.Column{Kind: model.Bytes, MaxLength: intp(16)}, "VARBINARY(16)"},
		{"json", &model.Column{Kind: model.JSON}, "NVARCHAR(MAX)"},
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

func TestSQLServerCreateSchema(t *testing.T) {
	d := SQLServer()
	got := d.CreateSchema("app")
	want := "IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = N'app')\n" +
		"    EXEC(N'CREATE SCHEMA [app]')"
	if got != want {
		t.Errorf("CreateSchema =\n%s\nwant:\n%s", got, want)
	}
}

func TestSQLServerCreateTable(t *testing.T) {
	d := SQLServer()
	table := &model.Table{
		Schema: "app",
		Name:   "Users",
		Columns: []*model.Column{
			{Name: "Id", Kind: model.Int64, IncrementalKey: true},
			{Name: "Name", Kind: model.String, Unicode: true, MaxLength: intp(200)},
			{Name: "Bio", Kind: model.String, Unicode: true, Nullable: true},
			{Name: "Active", Kind: model.Bool, Default: true},
		},
		PrimaryKey: &model.Key{Name: "PK_Users", Columns: []string{"Id"}},
	}

	t.Run("guarded", func(t *testing.T) {
		got, err := d.CreateTable(table, true)
		if err != nil {
			t.Fatalf("CreateTable: %v", err)
		}
		want := "IF OBJECT_ID(N'[app].[Users]', N'U') IS NULL\n" +
			"CREATE TABLE [app].[Users] (\n" +
			"    [Id] BIGINT IDENTITY(1,1) NOT NULL,\n" +
			"    [Name] NVARCHAR(200) NOT NULL,\n" +
			"    [Bio] NVARCHAR(MAX) NULL,\n" +
			"    [Active] BIT NOT NULL DEFAULT 1,\n" +
			"    CONSTRAINT [PK_Users] PRIMARY KEY ([Id])\n" +
			")"
		if got != want {
			t.Errorf("CreateTable =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("unguarded has no existence check", func(t *testing.T) {
		got, err := d.CreateTable(table, false)
		if err != nil {
			t.Fatalf("CreateTable: %v", err)
		}
		if got[:12] != "CREATE TABLE" {
			t.Errorf("CreateTable = %q, want plain CREATE TABLE", got)
		}
	})
}

func TestSQLServerConstraints(t *testing.T) {
	d := SQLServer()

	t.Run("unique guarded", func(t *testing.T) {
		got := d.AddUnique("app", "Users", &model.Key{Name: "UQ_Email", Columns: []string{"Email"}}, true)
		want := "IF NOT EXISTS (SELECT 1 FROM sys.objects WHERE name = N'UQ_Email' AND parent_object_id = OBJECT_ID(N'[app].[Users]'))\n" +
			"ALTER TABLE [app].[Users] ADD CONSTRAINT [UQ_Email] UNIQUE ([Email])"
		if got != want {
			t.Errorf("AddUnique =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("check unguarded", func(t *testing.T) {
		got := d.AddCheck("app", "Users", &model.Check{Name: "CK_Users_1", Expression: "[Age] >= 0"}, false)
		want := "ALTER TABLE [app].[Users] ADD CONSTRAINT [CK_Users_1] CHECK ([Age] >= 0)"
		if got != want {
			t.Errorf("AddCheck = %q, want %q", got, want)
		}
	})

	t.Run("index guarded", func(t *testing.T) {
		got := d.AddIndex("app", "Users", &model.Index{Name: "IX_Email", Columns: []string{"Email"}}, true)
		want := "IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'IX_Email' AND object_id = OBJECT_ID(N'[app].[Users]'))\n" +
			"CREATE INDEX [IX_Email] ON [app].[Users] ([Email])"
		if got != want {
			t.Errorf("AddIndex =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("unique index", func(t *testing.T) {
		got := d.AddIndex("app", "Users", &model.Index{Name: "IX_Email", Columns: []string{"Email"}, Unique: true}, false)
		want := "CREATE UNIQUE INDEX [IX_Email] ON [app].[Users] ([Email])"
		if got != want {
			t.Errorf("AddIndex = %q, want %q", got, want)
		}
	})

	t.Run("foreign key guarded with cascade", func(t *testing.T) {
		fk := &model.ForeignKey{
			Name:       "FK_Orders_Users_UserId",
			Columns:    []string{"UserId"},
			RefTable:   "Users",
			RefColumns: []string{"Id"},
			OnDelete:   model.Cascade,
		}
		got, err := d.AddForeignKey("app", "Orders", fk, true)
		if err != nil {
			t.Fatalf("AddForeignKey: %v", err)
		}
		want := "IF NOT EXISTS (SELECT 1 FROM sys.foreign_keys WHERE name = N'FK_Orders_Users_UserId' AND parent_object_id = OBJECT_ID(N'[app].[Orders]'))\n" +
			"ALTER TABLE [app].[Orders] ADD CONSTRAINT [FK_Orders_Users_UserId] FOREIGN KEY ([UserId]) REFERENCES [app].[Users] ([Id]) ON DELETE CASCADE"
		if got != want {
			t.Errorf("AddForeignKey =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("foreign key cross-schema", func(t *testing.T) {
		fk := &model.ForeignKey{
			Name:       "FK_Orders_Accounts_AccountId",
			Columns:    []string{"AccountId"},
			RefSchema:  "billing",
			RefTable:   "Accounts",
			RefColumns: []string{"Id"},
		}
		got, err := d.AddForeignKey("app", "Orders", fk, false)
		if err != nil {
			t.Fatalf("AddForeignKey: %v", err)
		}
		want := "ALTER TABLE [app].[Orders] ADD CONSTRAINT [FK_Orders_Accounts_AccountId] FOREIGN KEY ([AccountId]) REFERENCES [billing].[Accounts] ([Id])"
		if got != want {
			t.Errorf("AddForeignKey = %q, want %q", got, want)
		}
	})

	t.Run("invalid foreign key", func(t *testing.T) {
		fk := &model.ForeignKey{Name: "FK_bad", Columns: []string{"A"}, RefTable: "Users"}
		if _, err := d.AddForeignKey("app", "Orders", fk, false); !verr.Is(err, verr.ErrModelInvalid) {
			t.Fatalf("AddForeignKey error = %v, want %s", err, verr.ErrModelInvalid)
		}
	})
}

func TestSQLServerSequences(t *testing.T) {
	d := SQLServer()

	got := d.CreateSequence("app", "SEQ_Orders_Number", 100, 5, true)
	want := "IF OBJECT_ID(N'[app].[SEQ_Orders_Number]', N'SO') IS NULL\n" +
		"CREATE SEQUENCE [app].[SEQ_Orders_Number] AS BIGINT START WITH 100 INCREMENT BY 5"
	if got != want {
		t.Errorf("CreateSequence =\n%s\nwant:\n%s", got, want)
	}

	col := &model.Column{Name: "Number", Kind: model.Int64, SequenceName: "SEQ_Orders_Number"}
	gotCol, err := d.AddColumn("app", "Orders", col)
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	wantCol := "ALTER TABLE [app].[Orders] ADD [Number] BIGINT NOT NULL DEFAULT NEXT VALUE FOR [app].[SEQ_Orders_Number]"
	if gotCol != wantCol {
		t.Errorf("AddColumn = %q, want %q", gotCol, wantCol)
	}
}

func TestSQLServerDrops(t *testing.T) {
	d := SQLServer()

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"table", d.DropTable("app", "Users"), "DROP TABLE [app].[Users]"},
		{"column", d.DropColumn("app", "Users", "Bio"), "ALTER TABLE [app].[Users] DROP COLUMN [Bio]"},
		{"constraint", d.DropConstraint("app", "Users", "UQ_Email"), "ALTER TABLE [app].[Users] DROP CONSTRAINT [UQ_Email]"},
		{"index", d.DropIndex("app", "Users", "IX_Email"), "DROP INDEX [IX_Email] ON [app].[Users]"},
		{"view", d.DropView("app", "ActiveUsers"), "DROP VIEW IF EXISTS [app].[ActiveUsers]"},
		{"procedure", d.DropProcedure("app", "PurgeUsers"), "DROP PROCEDURE IF EXISTS [app].[PurgeUsers]"},
		{"trigger", d.DropTrigger("app", "TRG_Audit", "Users"), "DROP TRIGGER IF EXISTS [app].[TRG_Audit]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestSQLServerRawSQL(t *testing.T) {
	d := SQLServer()

	op := &ops.RawSQL{SQL: "SELECT 1", SQLServer: "SELECT TOP 1 1"}
	if got := d.RawSQLFor(op); got != "SELECT TOP 1 1" {
		t.Errorf("RawSQLFor = %q, want dialect override", got)
	}

	op = &ops.RawSQL{SQL: "SELECT 1", Postgres: "SELECT 2"}
	if got := d.RawSQLFor(op); got != "SELECT 1" {
		t.Errorf("RawSQLFor = %q, want generic SQL", got)
	}
}
