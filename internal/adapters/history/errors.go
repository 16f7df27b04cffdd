package history

import "errors"

var (
	// ErrNotFound is returned when a run id is unknown.
	ErrNotFound = errors.New("history: run not found")
	// ErrEmptyPath is returned when the database path is not set.
	ErrEmptyPath = errors.New("history: empty database path")
	// ErrEmptyID is returned when recording a run without an id.
	ErrEmptyID = errors.New("history: empty run id")
)
