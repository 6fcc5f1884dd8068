package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies failures surfaced to callers
type ErrorCategory string

const (
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryStore      ErrorCategory = "store"
	ErrorCategoryConfig     ErrorCategory = "config"
	ErrorCategoryNotFound   ErrorCategory = "not_found"
)

// AuditorError wraps errors with a category and the failing operation
type AuditorError struct {
	Category ErrorCategory
	Op       string
	Err      error
}

func (e *AuditorError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %v", e.Category, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *AuditorError) Unwrap() error {
	return e.Err
}

// NewError creates a categorized error
func NewError(category ErrorCategory, op string, err error) error {
	return &AuditorError{Category: category, Op: op, Err: err}
}

// Errorf creates a categorized error from a format string
func Errorf(category ErrorCategory, op, format string, args ...any) error {
	return &AuditorError{Category: category, Op: op, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of the first AuditorError in the chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var ae *AuditorError
	if errors.As(err, &ae) {
		return ae.Category, true
	}
	return "", false
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}
