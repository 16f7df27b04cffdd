package eval

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidCondition indicates a condition whose shape cannot be evaluated.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrMissingMetric indicates a condition referencing a metric the plugin did not compute.
	ErrMissingMetric = errors.New("metric not computed")
	// ErrMissingSeries indicates a trend condition referencing a series the plugin did not compute.
	ErrMissingSeries = errors.New("metric series not computed")
	// ErrMissingEvent indicates an event check for an event absent from the run context.
	ErrMissingEvent = errors.New("event not present")
	// ErrMissingRef indicates a composite referencing condition ids that were never evaluated.
	ErrMissingRef = errors.New("missing condition reference")
	// ErrNoData indicates skeleton or series data too thin to decide the condition.
	ErrNoData = errors.New("insufficient data")
)
