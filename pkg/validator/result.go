package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a validation error on one input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult accumulates field errors for a single input.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  []ValidationError `json:"errors"`
}

// NewResult returns an empty, valid result.
func NewResult() *ValidationResult {
	return &ValidationResult{IsValid: true, Errors: []ValidationError{}}
}

// Add records a failed check.
func (r *ValidationResult) Add(field, message string) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddValue records a failed check together with the offending value.
func (r *ValidationResult) AddValue(field, message string, value any) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Value: value})
}

// Has reports whether field already failed a check.
func (r *ValidationResult) Has(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil for a valid result and an *Error otherwise.
func (r *ValidationResult) Err() error {
	if r == nil || r.IsValid {
		return nil
	}
	return &Error{Errors: append([]ValidationError(nil), r.Errors...)}
}

// Error is the error form of a failed ValidationResult.
type Error struct {
	Errors []ValidationError `json:"errors"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsError extracts a validation error from an error chain.
func AsError(err error) (*Error, bool) {
	var validationErr *Error
	if errors.As(err, &validationErr) {
		return validationErr, true
	}
	return nil, false
}

// Fields lists the fields that failed, in order.
func (e *Error) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		fields = append(fields, fieldErr.Field)
	}
	return fields
}
