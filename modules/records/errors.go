package records

import "errors"

// Sentinel errors for record store operations.
var (
	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTagNotFound is returned when no tag has the requested id.
	ErrTagNotFound = errors.New("tag not found")

	// ErrKeyNotFound is returned by a KVStore when the key has never been written.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotLoaded is returned when a mutation runs before Load.
	ErrNotLoaded = errors.New("record store not loaded")
)
