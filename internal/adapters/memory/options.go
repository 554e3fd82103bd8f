package memory

import "time"

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithDimension sets the fixed embedding dimension.
func WithDimension(dim int) Option {
	return func(s *InMemoryStore) {
		if dim > 0 {
			s.dim = dim
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
