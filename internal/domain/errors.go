package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that an expected contributor, session or record is absent.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized signals that no verified contributor identity was supplied.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict signals that a uniqueness constraint rejected a write,
	// e.g. a second active session for the same contributor.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports a malformed input naming the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps a failure of the underlying document store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: while %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage tags err as a storage failure, passing nil through unchanged.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
