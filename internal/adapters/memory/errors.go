package memory

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidMemory     = errors.New("invalid memory")
)
