package store

import "errors"

var (
	// ErrNotFound is returned when no row matches the given id combination.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write loses to a concurrent
	// mutation of the same belief.
	ErrConflict = errors.New("concurrent write conflict")
)
