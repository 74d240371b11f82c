package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSetExpandError_Error(t *testing.T) {
	err := New(ErrCategoryValidation, CodeInvalidInput, "sliders must be numbers")
	expected := "[VALIDATION:INVALID_INPUT] sliders must be numbers"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestSetExpandError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := NewStoreError("lookup cells", cause)
	expected := "[STORE:STORE_QUERY_FAILURE] lookup cells: database is locked"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestSetExpandError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewStoreError("title lookup", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestSetExpandError_Is(t *testing.T) {
	err1 := NewSessionNotFound("a")
	err2 := NewSessionNotFound("b")
	err3 := NewSeedNotInitialized()

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("dot-op: %w", err1)
	if !errors.Is(wrapped, NewSessionNotFound("")) {
		t.Error("wrapped error should still match")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{NewStoreError("query", nil), true},
		{NewInvalidInput("bad"), false},
		{NewInfeasibleAlignment("too few columns"), false},
		{NewEmptyCandidateSet("nothing matched"), false},
		{NewSessionNotFound("x"), false},
		{NewInternalError("boom", nil), false},
		{fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		if IsRetryable(tt.err) != tt.retryable {
			t.Errorf("%v retryable=%v, want %v", tt.err, IsRetryable(tt.err), tt.retryable)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewInfeasibleAlignment("no assignment clears thresholds")
	if GetCategory(err) != ErrCategoryAlignment {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryAlignment)
	}
	if GetCode(err) != CodeInfeasibleAlignment {
		t.Errorf("got %q, want %q", GetCode(err), CodeInfeasibleAlignment)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-SetExpandError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-SetExpandError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewInvalidInput("bad column")
	detailed := err.WithDetails(map[string]interface{}{"column": 4})

	if detailed.Details["column"] != 4 {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}
