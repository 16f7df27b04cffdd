package ruleset

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidDefinition = errors.New("invalid rule definition")
	ErrInvalidCondition  = errors.New("invalid condition")
	ErrSchemaVersion     = errors.New("invalid schema_version")
	ErrCrossRef          = errors.New("broken cross reference")
	ErrNotV1             = errors.New("input ruleset is not schema v1")
)
