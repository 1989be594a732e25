package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrDuplicateCartItem = errors.New("cart already holds this configuration")
	ErrCarNotFound       = errors.New("car not found")
	ErrSuperseded        = errors.New("fetch superseded by a newer request")
)

// ValidationError lists the offending input fields and why each was rejected.
// Notice is what the visitor is shown.
type ValidationError struct {
	Fields map[string]string
	Notice Notice
}

func newValidationError(title, description string) *ValidationError {
	return &ValidationError{
		Fields: make(map[string]string),
		Notice: errorNotice(title, description),
	}
}

func (e *ValidationError) add(field, reason string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
