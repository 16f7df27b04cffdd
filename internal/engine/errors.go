package engine

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNoFrameSource indicates a phase with neither a frame range nor an event window.
	ErrNoFrameSource = errors.New("phase has no frame source")
	// ErrMissingEvent indicates an event window anchored on an event absent from the run context.
	ErrMissingEvent = errors.New("event not present")
	// ErrMissingFPS indicates an event window without a configured expected_fps to convert it.
	ErrMissingFPS = errors.New("expected_fps is not configured")
	// ErrEmptyInput indicates an analyze call without skeleton data on one side.
	ErrEmptyInput = errors.New("empty skeleton input")
)
