package skeleton

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrEmptySequence = errors.New("empty skeleton sequence")
	ErrJointCount    = errors.New("bad joint layout")
	ErrFrameRange    = errors.New("invalid frame range")
	ErrShapeMismatch = errors.New("sequence shapes differ")
)
