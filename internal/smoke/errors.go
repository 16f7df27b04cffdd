package smoke

import "errors"

// ErrCheckFailed is returned when a self-check outcome deviates from the
// known-good result.
var ErrCheckFailed = errors.New("smoke check failed")
