// Package verr provides standardized error handling for vireo.
// All errors carry a stable, machine-readable code plus structured
// context so a failure can be located without re-running with extra
// diagnostics.
package verr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// Model errors (E1xxx) - invalid schema model construction
	ErrModelInvalid   Code = "E1001" // model element is malformed
	ErrDuplicateKey   Code = "E1002" // duplicate primary key on a table
	ErrDuplicateName  Code = "E1003" // duplicate column/table name (case-insensitive)
	ErrUnknownKind    Code = "E1004" // logical column kind not recognized

	// Annotation errors (E2xxx) - invalid or ambiguous entity annotations
	ErrAnnotation       Code = "E2001" // annotation misuse (size on non-string, etc.)
	ErrMissingReference Code = "E2002" // foreign key references a missing entity/member
	ErrMissingTable     Code = "E2003" // entity lacks a required table annotation

	// Generation errors (E3xxx)
	ErrUnsupportedOp Code = "E3001" // operation variant has no generation rule
	ErrOpInvalid     Code = "E3002" // operation is missing required fields

	// Lock errors (E4xxx)
	ErrLockTimeout Code = "E4001" // advisory lock not granted within timeout
	ErrLockRelease Code = "E4002" // advisory lock release failed

	// Execution errors (E5xxx)
	ErrSQLExecution   Code = "E5001" // SQL batch failed to execute
	ErrSQLTransaction Code = "E5002" // transaction begin/commit failed
	ErrTxActive       Code = "E5003" // nested transaction begin on active session
	ErrHistory        Code = "E5004" // history ledger operation failed
	ErrMigration      Code = "E5005" // migration application failed
)

// Error is the standard error type for vireo.
type Error struct {
	code    Code
	message string
	context map[string]any
	cause   error
}

// Error renders the code, message, sorted context, and cause.
// Format:
//
//	[E2001] length annotation is only valid on string members
//	  entity: Invoice
//	  member: Amount
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.code, e.message)

	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, e.context[k])
		}
	}

	if e.cause != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Unwrap compatibility.
func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.code == t.code
	}
	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code { return e.code }

// Context returns the structured context map.
func (e *Error) Context() map[string]any { return e.context }

// With adds a key-value pair to the error context and returns the error
// for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithEntity adds the offending entity name.
func (e *Error) WithEntity(name string) *Error { return e.With("entity", name) }

// WithMember adds the offending entity member name.
func (e *Error) WithMember(name string) *Error { return e.With("member", name) }

// WithTable adds the qualified table name ("schema.table").
func (e *Error) WithTable(schema, table string) *Error {
	if schema != "" {
		return e.With("table", schema+"."+table)
	}
	return e.With("table", table)
}

// WithColumn adds the offending column name.
func (e *Error) WithColumn(name string) *Error { return e.With("column", name) }

// WithOperation adds the offending operation kind.
func (e *Error) WithOperation(kind string) *Error { return e.With("operation", kind) }

// WithBatch adds the failing SQL batch text.
func (e *Error) WithBatch(sql string) *Error { return e.With("batch", sql) }

// WithScope adds the advisory lock scope name.
func (e *Error) WithScope(scope string) *Error { return e.With("scope", scope) }

// WithMigration adds the migration id.
func (e *Error) WithMigration(id string) *Error { return e.With("migration", id) }

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{code: code, message: msg, context: make(map[string]any)}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{code: code, message: msg, context: make(map[string]any), cause: err}
}

// Wrapf creates a new wrapping Error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetCode extracts the code from an error chain, or "" if none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool { return GetCode(err) == code }
