package verr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Error Rendering Tests
// -----------------------------------------------------------------------------

func TestErrorRendering(t *testing.T) {
	t.Run("code_and_message", func(t *testing.T) {
		err := New(ErrAnnotation, "length annotation is only valid on string members")
		got := err.Error()
		if !strings.HasPrefix(got, "[E2001] length annotation") {
			t.Errorf("Error() = %q, want [E2001] prefix", got)
		}
	})

	t.Run("context_sorted", func(t *testing.T) {
		err := New(ErrAnnotation, "bad annotation").
			WithMember("Amount").
			WithEntity("Invoice")
		got := err.Error()

		entityIdx := strings.Index(got, "entity: Invoice")
		memberIdx := strings.Index(got, "member: Amount")
		if entityIdx < 0 || memberIdx < 0 {
			t.Fatalf("Error() missing context: %q", got)
		}
		if entityIdx > memberIdx {
			t.Errorf("context keys not sorted: %q", got)
		}
	})

	t.Run("cause_included", func(t *testing.T) {
		cause := fmt.Errorf("connection reset")
		err := Wrap(ErrSQLExecution, cause, "failed to execute batch")
		if !strings.Contains(err.Error(), "cause: connection reset") {
			t.Errorf("Error() = %q, want cause included", err.Error())
		}
	})
}

// -----------------------------------------------------------------------------
// Wrapping / Matching Tests
// -----------------------------------------------------------------------------

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(ErrSQLTransaction, cause, "begin failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should match the wrapped cause")
	}
}

func TestIsByCode(t *testing.T) {
	err := New(ErrLockTimeout, "lock not granted").WithScope("vireo")

	if !Is(err, ErrLockTimeout) {
		t.Error("Is() = false, want true for matching code")
	}
	if Is(err, ErrSQLExecution) {
		t.Error("Is() = true, want false for different code")
	}

	// Wrapped chains still resolve the code.
	outer := fmt.Errorf("run failed: %w", err)
	if GetCode(outer) != ErrLockTimeout {
		t.Errorf("GetCode(wrapped) = %v, want %v", GetCode(outer), ErrLockTimeout)
	}
}

func TestErrorsIsBetweenInstances(t *testing.T) {
	a := New(ErrUnsupportedOp, "no rule for operation")
	b := New(ErrUnsupportedOp, "different message")

	if !errors.Is(a, b) {
		t.Error("errors.Is() should match two errors with the same code")
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(ErrHistory, nil, "insert failed")
	if err == nil {
		t.Fatal("Wrap(nil) returned nil")
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil for nil cause")
	}
}
