package predict

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingContext = errors.New("missing context")
)

// MissingContextError reports which mandatory GameContext fields were absent.
// Caller-resolved; never auto-retried.
type MissingContextError struct {
	GameID string
	Fields []string
}

func (e *MissingContextError) Error() string {
	return fmt.Sprintf("missing context for game %s: %s", e.GameID, strings.Join(e.Fields, ", "))
}

// Is makes errors.Is(err, ErrMissingContext) work for wrapped values.
func (e *MissingContextError) Is(target error) bool {
	return target == ErrMissingContext
}
