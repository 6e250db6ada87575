package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vireodb/vireo/internal/dialect"
)

// stubDialect satisfies SQLDialect for the generic SQL branches.
type stubDialect struct{}

func (stubDialect) Name() string                 { return "sqlite" }
func (stubDialect) QuoteIdent(name string) string { return `"` + name + `"` }
func (stubDialect) Placeholder(index int) string  { return "?" }

// ---- tests ----

func TestFormatUTC(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 1, 123456700, time.UTC)
	got := FormatUTC(at)
	want := "2024-03-07T09:05:01.1234567"
	if got != want {
		t.Fatalf("FormatUTC = %q, want %q", got, want)
	}

	// Non-UTC inputs are normalized.
	loc := time.FixedZone("X", 3600)
	got = FormatUTC(time.Date(2024, 3, 7, 10, 5, 1, 0, loc))
	want = "2024-03-07T09:05:01.0000000"
	if got != want {
		t.Fatalf("FormatUTC with zone = %q, want %q", got, want)
	}
}

func TestHistoryCreateTableSQL(t *testing.T) {
	t.Run("sqlserver is existence guarded", func(t *testing.T) {
		h := NewHistory(nil, dialect.Get("sqlserver"))
		sql := h.createTableSQL()
		if !strings.HasPrefix(sql, "IF OBJECT_ID(N'vireo_migrations', N'U') IS NULL") {
			t.Fatalf("missing object guard:\n%s", sql)
		}
		if !strings.Contains(sql, "CREATE TABLE [vireo_migrations]") {
			t.Fatalf("missing quoted table:\n%s", sql)
		}
		if !strings.Contains(sql, "AppliedAtUtc   DATETIME2 NOT NULL") {
			t.Fatalf("missing timestamp column:\n%s", sql)
		}
	})

	t.Run("default uses IF NOT EXISTS", func(t *testing.T) {
		h := NewHistory(nil, stubDialect{})
		sql := h.createTableSQL()
		if !strings.HasPrefix(sql, `CREATE TABLE IF NOT EXISTS "vireo_migrations"`) {
			t.Fatalf("missing IF NOT EXISTS:\n%s", sql)
		}
		if !strings.Contains(sql, "MigrationId    VARCHAR(150) PRIMARY KEY") {
			t.Fatalf("missing primary key column:\n%s", sql)
		}
	})
}

func TestHistoryLedger(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	h := NewHistory(s, stubDialect{})

	if err := h.EnsureCreated(ctx); err != nil {
		t.Fatalf("ensure created: %v", err)
	}
	// Idempotent.
	if err := h.EnsureCreated(ctx); err != nil {
		t.Fatalf("ensure created twice: %v", err)
	}

	empty, err := h.Applied(ctx)
	if err != nil {
		t.Fatalf("applied on empty ledger: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty ledger has %d rows", len(empty))
	}

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := h.Insert(ctx, "002_add_orders", "add orders", "1.4.0", at); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := h.Insert(ctx, "001_initial", "initial", "1.4.0", at); err != nil {
		t.Fatalf("insert: %v", err)
	}

	applied, err := h.Applied(ctx)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("ledger has %d rows, want 2", len(applied))
	}
	if applied[0].ID != "001_initial" || applied[1].ID != "002_add_orders" {
		t.Fatalf("rows not ordered by id: %q, %q", applied[0].ID, applied[1].ID)
	}
	if applied[0].Name != "initial" || applied[0].ProductVersion != "1.4.0" {
		t.Fatalf("row fields = %+v", applied[0])
	}
	if applied[0].AppliedAtUtc != "2024-06-01T12:00:00.0000000" {
		t.Fatalf("applied at = %q", applied[0].AppliedAtUtc)
	}

	ids, err := h.AppliedIDs(ctx)
	if err != nil {
		t.Fatalf("applied ids: %v", err)
	}
	if _, ok := ids["001_initial"]; !ok {
		t.Fatal("missing 001_initial in id set")
	}
	if _, ok := ids["002_add_orders"]; !ok {
		t.Fatal("missing 002_add_orders in id set")
	}
}

func TestHistoryInsertDuplicateFails(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	h := NewHistory(s, stubDialect{})

	if err := h.EnsureCreated(ctx); err != nil {
		t.Fatalf("ensure created: %v", err)
	}
	if err := h.Insert(ctx, "001_initial", "initial", "1.0.0", time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := h.Insert(ctx, "001_initial", "initial", "1.0.0", time.Now()); err == nil {
		t.Fatal("duplicate id insert succeeded")
	}
}
