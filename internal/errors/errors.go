// Package errors provides structured error types for the set-expansion service.
// All errors include a category, code, message, and retryable flag so the
// HTTP and gRPC surfaces can map them to status codes consistently.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryStore      ErrorCategory = "STORE"
	ErrCategoryAlignment  ErrorCategory = "ALIGNMENT"
	ErrCategoryExpansion  ErrorCategory = "EXPANSION"
	ErrCategorySession    ErrorCategory = "SESSION"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidInput = "INVALID_INPUT"

	// Store codes
	CodeStoreQueryFailure = "STORE_QUERY_FAILURE"

	// Alignment codes
	CodeInfeasibleAlignment = "INFEASIBLE_ALIGNMENT"
	CodeDegenerateStatistic = "DEGENERATE_STATISTIC"

	// Expansion codes
	CodeEmptyCandidateSet  = "EMPTY_CANDIDATE_SET"
	CodeSeedNotInitialized = "SEED_NOT_INITIALIZED"

	// Session codes
	CodeSessionNotFound = "SESSION_NOT_FOUND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// SetExpandError is the structured error type used throughout the system.
type SetExpandError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *SetExpandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SetExpandError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *SetExpandError) Is(target error) bool {
	var t *SetExpandError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new SetExpandError.
func New(category ErrorCategory, code, message string) *SetExpandError {
	return &SetExpandError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new SetExpandError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *SetExpandError {
	return &SetExpandError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *SetExpandError) WithDetails(details map[string]interface{}) *SetExpandError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var se *SetExpandError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a SetExpandError.
func GetCategory(err error) ErrorCategory {
	var se *SetExpandError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a SetExpandError.
func GetCode(err error) string {
	var se *SetExpandError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// isRetryable reports whether retrying the same call may succeed. Only store
// failures qualify; everything else is deterministic given the same input.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStore && code == CodeStoreQueryFailure
}

// Convenience constructors for common errors.

func NewInvalidInput(message string) *SetExpandError {
	return New(ErrCategoryValidation, CodeInvalidInput, message)
}

func NewStoreError(message string, cause error) *SetExpandError {
	return Wrap(ErrCategoryStore, CodeStoreQueryFailure, message, cause)
}

func NewInfeasibleAlignment(message string) *SetExpandError {
	return New(ErrCategoryAlignment, CodeInfeasibleAlignment, message)
}

func NewEmptyCandidateSet(message string) *SetExpandError {
	return New(ErrCategoryExpansion, CodeEmptyCandidateSet, message)
}

func NewSeedNotInitialized() *SetExpandError {
	return New(ErrCategoryExpansion, CodeSeedNotInitialized, "seed set has not been posted")
}

func NewSessionNotFound(id string) *SetExpandError {
	return New(ErrCategorySession, CodeSessionNotFound, fmt.Sprintf("session %q not found", id))
}

func NewInternalError(message string, cause error) *SetExpandError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
