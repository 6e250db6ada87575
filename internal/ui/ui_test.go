package ui

import (
	"strings"
	"testing"
)

func TestPlainOutput(t *testing.T) {
	SetStyled(false)
	t.Cleanup(func() { styled = detectTTY() })

	if got := Success("done"); got != "✓ done" {
		t.Fatalf("Success = %q", got)
	}
	if got := Error("boom"); got != "✗ boom" {
		t.Fatalf("Error = %q", got)
	}
	if got := Warning("careful"); got != "⚠ careful" {
		t.Fatalf("Warning = %q", got)
	}
	if got := KeyValue("dialect", "postgres"); got != "dialect: postgres" {
		t.Fatalf("KeyValue = %q", got)
	}
}

func TestSection(t *testing.T) {
	SetStyled(false)
	t.Cleanup(func() { styled = detectTTY() })

	got := Section("History")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 || lines[0] != "History" {
		t.Fatalf("Section = %q", got)
	}
	if len([]rune(lines[1])) != len("History") {
		t.Fatalf("separator length = %d", len([]rune(lines[1])))
	}
}

func TestCount(t *testing.T) {
	if got := Count(1, "migration", "migrations"); got != "1 migration" {
		t.Fatalf("Count = %q", got)
	}
	if got := Count(3, "migration", "migrations"); got != "3 migrations" {
		t.Fatalf("Count = %q", got)
	}
}
