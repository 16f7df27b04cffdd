package baseball

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnknownPhase indicates a phase id outside step1 through step4.
	ErrUnknownPhase = errors.New("unknown phase id")
	// ErrEmptyPhase indicates a phase with no frames on one side.
	ErrEmptyPhase = errors.New("empty phase data")
)
