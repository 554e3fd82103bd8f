package validate

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInconsistentPrediction = errors.New("inconsistent prediction")
)

// ViolationsError carries the structured list of violated constraints.
type ViolationsError struct {
	GameID     string
	ExpertID   string
	Violations []Violation
}

func (e *ViolationsError) Error() string {
	return fmt.Sprintf("inconsistent prediction for game %s expert %s: %d violation(s), first: %s",
		e.GameID, e.ExpertID, len(e.Violations), e.Violations[0].Code)
}

// Is makes errors.Is(err, ErrInconsistentPrediction) work for wrapped values.
func (e *ViolationsError) Is(target error) bool {
	return target == ErrInconsistentPrediction
}
