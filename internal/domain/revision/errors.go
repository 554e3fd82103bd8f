package revision

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrStaleWindow     = errors.New("revision window closed")
	ErrEmptyRevision   = errors.New("empty revision")
	ErrUnknownCategory = errors.New("unknown category")
)

// StaleWindowError marks a revision attempted at or after kickoff. The
// original record version is left unchanged.
type StaleWindowError struct {
	GameID   string
	ExpertID string
	Kickoff  time.Time
	At       time.Time
}

func (e *StaleWindowError) Error() string {
	return fmt.Sprintf("revision for game %s expert %s attempted at %s, kickoff was %s",
		e.GameID, e.ExpertID, e.At.Format(time.RFC3339), e.Kickoff.Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrStaleWindow) work for wrapped values.
func (e *StaleWindowError) Is(target error) bool {
	return target == ErrStaleWindow
}
