// Package strutil provides the deterministic constraint naming
// conventions used throughout the vireo codebase.
package strutil

import (
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Constraint Naming Conventions
// -----------------------------------------------------------------------------

// PrimaryKeyName returns the conventional primary key name: PK_<table>.
func PrimaryKeyName(table string) string {
	return "PK_" + table
}

// UniqueName returns the conventional unique constraint name: UQ_<group>.
func UniqueName(group string) string {
	return "UQ_" + group
}

// CheckName returns the conventional check constraint name:
// CK_<table>_<n>. The counter n is the 1-based position of the check on
// its table, assigned in declaration order.
func CheckName(table string, n int) string {
	return "CK_" + table + "_" + strconv.Itoa(n)
}

// ForeignKeyName returns the conventional foreign key name:
// FK_<table>_<refTable>_<column>.
func ForeignKeyName(table, refTable, column string) string {
	return "FK_" + table + "_" + refTable + "_" + column
}

// IndexName returns the conventional index name: IX_<group>.
func IndexName(group string) string {
	return "IX_" + group
}

// SequenceName returns the conventional sequence name:
// SEQ_<table>_<column>.
func SequenceName(table, column string) string {
	return "SEQ_" + table + "_" + column
}

// JoinColumns joins column names with underscores, used when a name
// must encode a column list.
func JoinColumns(cols []string) string {
	return strings.Join(cols, "_")
}
