package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	err := New(CategoryParse, CodeInvalidFormat, "bad sheet")
	if err.Category != CategoryParse || err.Code != CodeInvalidFormat {
		t.Errorf("unexpected error %+v", err)
	}
	if err.Error() != "bad sheet" {
		t.Errorf("Error() = %q", err.Error())
	}

	cause := stderrors.New("boom")
	wrapped := Wrap(cause, CategoryPersistence, CodeWriteRejected, "write failed")
	if wrapped.Unwrap() != cause {
		t.Error("Unwrap lost the cause")
	}
	if Wrap(nil, CategoryPersistence, CodeWriteRejected, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "file missing").
		WithSuggestion("check the path")
	if !strings.Contains(err.Error(), "suggestion: check the path") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWithContext(t *testing.T) {
	err := PersistenceError(CodeDocumentMissing, "cartera", "abc", nil)
	if err.Context["collection"] != "cartera" || err.Context["document_id"] != "abc" {
		t.Errorf("context = %+v", err.Context)
	}

	err.WithContext("attempt", 2)
	if err.Context["attempt"] != 2 {
		t.Errorf("context = %+v", err.Context)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
		{CategoryPersistence, 6},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "x")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("GetExitCode(%s) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestAsCarteraError(t *testing.T) {
	inner := ReconciliationError(CodeKeyDerivation, "import", nil)
	if _, ok := AsCarteraError(inner); !ok {
		t.Error("direct CarteraError not recognized")
	}

	plain := stderrors.New("plain")
	if _, ok := AsCarteraError(plain); ok {
		t.Error("plain error misrecognized")
	}

	wrapped := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "ctx")
	if wrapped.Category != CategoryInternal {
		t.Errorf("category = %s", wrapped.Category)
	}
	// already-wrapped errors pass through unchanged
	if again := WrapIfNeeded(inner, CategoryFile, CodeFileNotFound, "x"); again != inner {
		t.Error("WrapIfNeeded rewrapped a CarteraError")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*CarteraError{
		PersistenceError(CodeWriteRejected, "cartera", "a", nil),
		PersistenceError(CodeWriteRejected, "cartera", "b", nil),
		New(CategoryParse, CodeInvalidFormat, "bad row"),
	}

	summary := NewErrorSummary(errs)
	if summary.Total != 3 {
		t.Errorf("total = %d", summary.Total)
	}
	if summary.ByCategory[CategoryPersistence] != 2 {
		t.Errorf("persistence count = %d", summary.ByCategory[CategoryPersistence])
	}
	if !summary.HasCategory(CategoryParse) {
		t.Error("parse category missing")
	}
	// highest-priority exit code wins: persistence (6) over parse (3)
	if summary.GetExitCode() != 6 {
		t.Errorf("exit code = %d", summary.GetExitCode())
	}
	if !strings.Contains(summary.Error(), "3 errors occurred") {
		t.Errorf("summary error = %q", summary.Error())
	}

	empty := NewErrorSummary(nil)
	if empty.GetExitCode() != 0 || empty.Error() != "no errors" {
		t.Errorf("empty summary: %d %q", empty.GetExitCode(), empty.Error())
	}
}
