package artifacts

import "errors"

var (
	// ErrEmptyRoot is returned when the store root is not set.
	ErrEmptyRoot = errors.New("artifacts: empty root directory")
	// ErrEmptyDataset is returned when a save is attempted without a dataset name.
	ErrEmptyDataset = errors.New("artifacts: empty dataset name")
)
