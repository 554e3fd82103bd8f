package expert

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidTrait        = errors.New("trait outside [0,1]")
	ErrInvalidLearningRate = errors.New("learning rate outside (0,1)")
	ErrInvalidRoster       = errors.New("invalid roster")
	ErrUnknownExpert       = errors.New("unknown expert")
)
