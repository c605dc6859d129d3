package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// whose key already exists. Recorders treat it as "already applied"
	// and short-circuit without re-running aggregate side effects.
	ErrDuplicateKey = errors.New("duplicate key: record already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when an offer status update would
	// move backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid offer status transition")
)
