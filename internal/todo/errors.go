package todo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no task has the requested id.
	ErrNotFound = errors.New("task not found")

	// ErrOutOfRange is returned for a position outside [1, count]. It wraps
	// ErrNotFound so callers can treat both the same way.
	ErrOutOfRange = fmt.Errorf("%w: position out of range", ErrNotFound)

	// ErrAlreadyCompleted is returned by the one-way completion policy.
	ErrAlreadyCompleted = errors.New("task already completed")

	// ErrDuplicateID is returned when inserting a task whose id exists.
	ErrDuplicateID = errors.New("duplicate task id")
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // field or JSON path of the offending value
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed read or write of a data file.
type PersistenceError struct {
	Op   string // "read", "write", "parse", "validate", "marshal"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
