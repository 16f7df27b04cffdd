package artifacts

import "os"

// Option applies a configuration option to the FSStore.
type Option func(*FSStore)

// WithDirMode sets the permission bits for created directories.
func WithDirMode(mode os.FileMode) Option {
	return func(s *FSStore) {
		if mode != 0 {
			s.dirMode = mode
		}
	}
}

// WithFileMode sets the permission bits for written files.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FSStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}
