package learning

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOutcome marks a repeated learning pass for the same
	// (expert, game) pair. The first application stands untouched.
	ErrDuplicateOutcome = errors.New("outcome already applied")

	// ErrOutcomeNotFinal rejects learning from a non-final outcome.
	ErrOutcomeNotFinal = errors.New("outcome is not final")

	// ErrUnknownCategory rejects peer events for categories outside the schema.
	ErrUnknownCategory = errors.New("unknown category")
)

// DuplicateOutcomeError carries the pair whose outcome was already applied.
type DuplicateOutcomeError struct {
	GameID   string
	ExpertID string
}

func (e *DuplicateOutcomeError) Error() string {
	return fmt.Sprintf("outcome already applied: game %s expert %s", e.GameID, e.ExpertID)
}

// Is matches the duplicate outcome sentinel.
func (e *DuplicateOutcomeError) Is(target error) bool {
	return target == ErrDuplicateOutcome
}
