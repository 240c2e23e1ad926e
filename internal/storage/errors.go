package storage

import "errors"

// Storage errors shared by all adapters.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. The event log is append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrVersionConflict is returned by StateStore.Commit when the stored
	// snapshot version differs from the version the caller read.
	ErrVersionConflict = errors.New("version conflict: snapshot changed since it was loaded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
