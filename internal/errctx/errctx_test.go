package errctx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
)

func TestErrorContext_Error(t *testing.T) {
	e := New(CategoryUpstream, SeverityHigh, "llm_request", "The service failed.").
		WithTech("status 500 from upstream")
	if got := e.Error(); got != "llm_request: status 500 from upstream" {
		t.Errorf("Error() = %q", got)
	}

	plain := New(CategoryUserInput, SeverityLow, "parse", "Bad input.")
	if got := plain.Error(); got != "parse: Bad input." {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorContext_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := New(CategoryNetwork, SeverityMedium, "dial", "Network error.").WithCause(cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if e.TechMessage != "connection refused" {
		t.Errorf("WithCause should default TechMessage, got %q", e.TechMessage)
	}
}

func TestErrorContext_FormatForUser(t *testing.T) {
	e := New(CategoryUpstream, SeverityMedium, "llm_request", "The service is temporarily unavailable.").
		WithSuggestion("Wait a moment and try again.")
	got := e.FormatForUser()
	if !strings.Contains(got, "temporarily unavailable") || !strings.Contains(got, "Wait a moment") {
		t.Errorf("FormatForUser() = %q", got)
	}

	bare := New(CategoryInternal, SeverityHigh, "state", "Internal error.")
	if got := bare.FormatForUser(); got != "Internal error." {
		t.Errorf("FormatForUser() = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		category    Category
		severity    Severity
		recoverable bool
	}{
		{"cancelled", context.Canceled, CategoryUserInput, SeverityLow, true},
		{"deadline", context.DeadlineExceeded, CategoryNetwork, SeverityMedium, true},
		{"permission", os.ErrPermission, CategoryPermission, SeverityMedium, false},
		{"not found", fs.ErrNotExist, CategoryFileSystem, SeverityLow, true},
		{"wrapped cancel", fmt.Errorf("call failed: %w", context.Canceled), CategoryUserInput, SeverityLow, true},
		{"opaque", errors.New("boom"), CategoryUnknown, SeverityMedium, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "op")
			if got.Category != tt.category {
				t.Errorf("Category = %v, want %v", got.Category, tt.category)
			}
			if got.Severity != tt.severity {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.severity)
			}
			if got.Recoverable != tt.recoverable {
				t.Errorf("Recoverable = %v, want %v", got.Recoverable, tt.recoverable)
			}
			if got.Operation != "op" {
				t.Errorf("Operation = %q", got.Operation)
			}
		})
	}
}

func TestClassify_PassesThroughErrorContext(t *testing.T) {
	orig := New(CategoryCommand, SeverityHigh, "run", "Command failed.")
	got := Classify(fmt.Errorf("wrapped: %w", orig), "other_op")
	if got != orig {
		t.Error("Classify should return an already-classified error unchanged")
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil, "op"); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestResult(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok result misreports state")
	}
	if ok.Value() != 42 {
		t.Errorf("Value() = %d", ok.Value())
	}
	if ok.ValueOr(7) != 42 {
		t.Errorf("ValueOr() = %d", ok.ValueOr(7))
	}
	if ok.Err() != nil {
		t.Error("Err() should be nil on success")
	}

	e := New(CategoryUpstream, SeverityMedium, "llm_request", "failed")
	bad := Err[int](e)
	if bad.IsOk() || !bad.IsErr() {
		t.Error("Err result misreports state")
	}
	if bad.ValueOr(7) != 7 {
		t.Errorf("ValueOr() = %d, want fallback", bad.ValueOr(7))
	}
	if bad.Err() != e {
		t.Error("Err() should return the held error")
	}
}
