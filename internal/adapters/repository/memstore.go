package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/huddle/pkg/metrics"
)

type pairKey struct {
	gameID   string
	expertID string
}

// InMemoryStore implements Store with mutex-protected maps. Chains are
// slices ordered by version; reads return clones so callers cannot mutate
// stored state.
type InMemoryStore struct {
	mu         sync.RWMutex
	chains     map[pairKey][]*PredictionRecord
	revisions  map[string][]*RevisionEvent
	consensus  map[string]*ConsensusRecord
	outcomes   map[string]OutcomeRecord
	gamesKnown map[string]struct{}
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chains:     make(map[pairKey][]*PredictionRecord),
		revisions:  make(map[string][]*RevisionEvent),
		consensus:  make(map[string]*ConsensusRecord),
		outcomes:   make(map[string]OutcomeRecord),
		gamesKnown: make(map[string]struct{}),
	}
}

// SavePrediction appends a record to its (game, expert) chain.
func (s *InMemoryStore) SavePrediction(ctx context.Context, rec *PredictionRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	if rec == nil || rec.GameID == "" || rec.ExpertID == "" {
		return fmt.Errorf("%w: prediction needs game and expert IDs", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{gameID: rec.GameID, expertID: rec.ExpertID}
	chain := s.chains[key]
	if len(chain) > 0 {
		tip := chain[len(chain)-1]
		if rec.Version != tip.Version+1 || rec.PrevID != tip.ID {
			return fmt.Errorf("%w: version %d does not extend v%d for game %s expert %s",
				ErrVersionConflict, rec.Version, tip.Version, rec.GameID, rec.ExpertID)
		}
	} else if rec.Version != 1 {
		return fmt.Errorf("%w: chain must start at version 1, got %d", ErrVersionConflict, rec.Version)
	}

	s.chains[key] = append(chain, rec.Clone())
	s.gamesKnown[rec.GameID] = struct{}{}
	metrics.UpdateGamesTracked(len(s.gamesKnown))
	return nil
}

// LatestPrediction returns the newest record for the pair.
func (s *InMemoryStore) LatestPrediction(ctx context.Context, gameID, expertID string) (*PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("latest prediction: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[pairKey{gameID: gameID, expertID: expertID}]
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no prediction for game %s expert %s", ErrNotFound, gameID, expertID)
	}
	return chain[len(chain)-1].Clone(), nil
}

// PredictionChain returns every version for the pair, oldest first.
func (s *InMemoryStore) PredictionChain(ctx context.Context, gameID, expertID string) ([]*PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prediction chain: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[pairKey{gameID: gameID, expertID: expertID}]
	out := make([]*PredictionRecord, len(chain))
	for i, rec := range chain {
		out[i] = rec.Clone()
	}
	return out, nil
}

// LatestPredictions returns the newest record per expert for a game.
func (s *InMemoryStore) LatestPredictions(ctx context.Context, gameID string) (map[string]*PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("latest predictions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*PredictionRecord)
	for key, chain := range s.chains {
		if key.gameID != gameID || len(chain) == 0 {
			continue
		}
		out[key.expertID] = chain[len(chain)-1].Clone()
	}
	return out, nil
}

// SaveRevision records a belief revision event.
func (s *InMemoryStore) SaveRevision(ctx context.Context, ev *RevisionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save revision: %w", err)
	}
	if ev == nil || ev.GameID == "" {
		return fmt.Errorf("%w: revision needs a game ID", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *ev
	s.revisions[ev.GameID] = append(s.revisions[ev.GameID], &clone)
	return nil
}

// Revisions returns a game's revision events, oldest first.
func (s *InMemoryStore) Revisions(ctx context.Context, gameID string) ([]*RevisionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("revisions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.revisions[gameID]
	out := make([]*RevisionEvent, len(evs))
	for i, ev := range evs {
		clone := *ev
		out[i] = &clone
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SaveConsensus stores the frozen consensus for a game.
func (s *InMemoryStore) SaveConsensus(ctx context.Context, rec *ConsensusRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save consensus: %w", err)
	}
	if rec == nil || rec.GameID == "" {
		return fmt.Errorf("%w: consensus needs a game ID", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *rec
	s.consensus[rec.GameID] = &clone
	return nil
}

// Consensus returns a game's consensus record.
func (s *InMemoryStore) Consensus(ctx context.Context, gameID string) (*ConsensusRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("consensus: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.consensus[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: no consensus for game %s", ErrNotFound, gameID)
	}
	clone := *rec
	return &clone, nil
}

// SaveOutcome stores a game's final outcome exactly once.
func (s *InMemoryStore) SaveOutcome(ctx context.Context, gameID string, o OutcomeRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	if gameID == "" {
		return fmt.Errorf("%w: outcome needs a game ID", ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outcomes[gameID]; ok {
		return fmt.Errorf("%w: outcome for game %s", ErrAlreadyExists, gameID)
	}
	s.outcomes[gameID] = o
	return nil
}

// Outcome returns a game's stored outcome.
func (s *InMemoryStore) Outcome(ctx context.Context, gameID string) (OutcomeRecord, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeRecord{}, fmt.Errorf("outcome: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.outcomes[gameID]
	if !ok {
		return OutcomeRecord{}, fmt.Errorf("%w: no outcome for game %s", ErrNotFound, gameID)
	}
	return o, nil
}

// Count returns the number of games with at least one prediction.
func (s *InMemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gamesKnown)
}
