// Package consensus synchronizes expert arrivals per game and folds their
// forecasts into a single weighted ensemble view.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/okian/huddle/pkg/metrics"
)

// Barrier tracks which experts have delivered a forecast for each game and
// lets callers wait for a quorum. A wait that times out reports the game as
// degraded rather than failing outright.
type Barrier struct {
	mu    sync.Mutex
	games map[string]*gameBarrier

	timeout time.Duration
}

type gameBarrier struct {
	mu       sync.Mutex
	arrived  map[string]struct{}
	expected int
	ready    chan struct{}
	closed   bool
}

// NewBarrier creates a Barrier; waits give up after timeout.
func NewBarrier(timeout time.Duration) *Barrier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Barrier{
		games:   make(map[string]*gameBarrier),
		timeout: timeout,
	}
}

// Register declares how many experts a game waits for. Calling it again for
// the same game is a no-op.
func (b *Barrier) Register(gameID string, expected int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.games[gameID]; ok {
		return
	}
	b.games[gameID] = &gameBarrier{
		arrived:  make(map[string]struct{}, expected),
		expected: expected,
		ready:    make(chan struct{}),
	}
}

// Arrive records one expert's forecast delivery. Duplicate arrivals from the
// same expert count once.
func (b *Barrier) Arrive(gameID, expertID string) {
	gb := b.get(gameID)
	if gb == nil {
		return
	}

	gb.mu.Lock()
	defer gb.mu.Unlock()
	gb.arrived[expertID] = struct{}{}
	if !gb.closed && len(gb.arrived) >= gb.expected {
		gb.closed = true
		close(gb.ready)
	}
}

// Wait blocks until the game's quorum arrives, the timeout lapses, or ctx is
// canceled. It returns the arrived expert IDs and whether the quorum was met.
func (b *Barrier) Wait(ctx context.Context, gameID string) ([]string, bool) {
	gb := b.get(gameID)
	if gb == nil {
		return nil, false
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	complete := false
	select {
	case <-gb.ready:
		complete = true
	case <-timer.C:
		metrics.RecordConsensusDegraded()
	case <-ctx.Done():
	}

	gb.mu.Lock()
	defer gb.mu.Unlock()
	ids := make([]string, 0, len(gb.arrived))
	for id := range gb.arrived {
		ids = append(ids, id)
	}
	return ids, complete
}

// Forget drops a game's barrier state once its consensus is frozen.
func (b *Barrier) Forget(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.games, gameID)
}

func (b *Barrier) get(gameID string) *gameBarrier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.games[gameID]
}
