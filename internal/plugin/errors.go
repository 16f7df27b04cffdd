package plugin

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrEmptyName indicates a registration under an empty or whitespace name.
	ErrEmptyName = errors.New("plugin name must be non-empty")
	// ErrNilFactory indicates a registration without a factory.
	ErrNilFactory = errors.New("nil plugin factory")
	// ErrDuplicate indicates a second registration under an existing name.
	ErrDuplicate = errors.New("plugin already registered")
	// ErrUnknownPlugin indicates a lookup for a name nobody registered.
	ErrUnknownPlugin = errors.New("plugin is not registered")
	// ErrMissingSport indicates auto resolution against a v1 rule set without a sport.
	ErrMissingSport = errors.New("rule set sport is missing")
)
