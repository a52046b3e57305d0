// Package apperr defines the error kinds surfaced by the service layer.
// Handlers map them to HTTP statuses with errors.Is / errors.As.
package apperr

import (
	"errors"
	"sort"
	"strings"

	"github.com/samber/oops"
)

var (
	// ErrUnauthorized: missing, invalid or revoked credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound: resource absent or owned by someone else.
	ErrNotFound = errors.New("not found")

	// ErrInvalidUpdate: update names a field outside the allow-list.
	ErrInvalidUpdate = errors.New("invalid updates")

	// ErrValidation: entity invariant violated.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream: storage or collaborator failure not caused by the caller.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records the first message for a field.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Check records msg for field when cond is false.
func (e *ValidationError) Check(cond bool, field, msg string) {
	if !cond {
		e.Add(field, msg)
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Err returns e as an error, or nil when nothing failed.
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldError is a shortcut for a single failed field.
func FieldError(field, msg string) error {
	e := NewValidationError()
	e.Add(field, msg)
	return e
}

// Upstream wraps a storage or collaborator error so that it matches ErrUpstream
// and keeps the operation name for logs.
func Upstream(domain, operation string, err error) error {
	if err == nil {
		return nil
	}
	return oops.In(domain).
		Code("UPSTREAM_FAILURE").
		With("operation", operation).
		Wrap(errors.Join(ErrUpstream, err))
}
