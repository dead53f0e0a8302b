package models

import (
	"errors"
	"fmt"
)

// ErrReservationConflict is returned when a booking overlaps an existing
// reservation of the same property.
var ErrReservationConflict = errors.New("property is already reserved for the selected dates")

// ValidationError reports malformed or constraint-violating input.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StorageError wraps a failure of the persistence layer (connectivity,
// constraint violation, timeout).
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
