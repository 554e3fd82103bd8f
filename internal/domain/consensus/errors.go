package consensus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncomplete marks a consensus request with no forecasts to fold.
	ErrIncomplete = errors.New("consensus incomplete")
)

// IncompleteError lists the experts whose forecasts never arrived.
type IncompleteError struct {
	GameID  string
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("consensus incomplete for game %s: missing %s", e.GameID, strings.Join(e.Missing, ", "))
}

// Is matches the incomplete sentinel.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}
