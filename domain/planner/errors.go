package planner

import "errors"

// Sentinel errors for planner validation.
var (
	// ErrInvalidInput is returned when a task or tag field fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTheme is returned for a theme other than light or dark.
	ErrInvalidTheme = errors.New("invalid theme")
)
