package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
)

// ConstraintError describes a unique constraint violation on a specific field.
type ConstraintError struct {
	Constraint string
	Field      string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("repository: duplicate %s (%s)", e.Field, e.Constraint)
	}
	return fmt.Sprintf("repository: duplicate (%s)", e.Constraint)
}

// Is reports ErrDuplicate so callers can match with errors.Is.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
