// Package repository persists the agentflow records in PostgreSQL.
package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an update lost an optimistic version check.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("record already exists")
	// ErrReferenced is returned when a foreign key makes a write impossible:
	// the referenced record is missing or the deleted record is still referenced.
	ErrReferenced = errors.New("record reference violated")
)

// StorageUnavailableError wraps a failure to reach the backing store.
// Callers may retry the operation.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// Temporary marks the error as retryable.
func (e *StorageUnavailableError) Temporary() bool { return true }

// IsUnavailable reports whether err is a StorageUnavailableError.
func IsUnavailable(err error) bool {
	var se *StorageUnavailableError
	return errors.As(err, &se)
}
