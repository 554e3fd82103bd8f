// Package repository defines the forecast store interface and errors.
package repository

import (
	"context"

	"github.com/okian/huddle/internal/domain/model"
)

// Aliases for the domain records the store persists.
type (
	PredictionRecord = model.PredictionRecord
	RevisionEvent    = model.BeliefRevisionEvent
	ConsensusRecord  = model.ConsensusRecord
	OutcomeRecord    = model.OutcomeRecord
)

// Store provides read/write access to prediction chains, revisions,
// outcomes and consensus records.
//
// Prediction versions are append-only: a revision adds a new record linked
// to its predecessor, it never rewrites one.
type Store interface {
	// SavePrediction appends a prediction record to its (game, expert) chain.
	// Returns ErrVersionConflict when the version does not extend the chain.
	SavePrediction(ctx context.Context, rec *PredictionRecord) error

	// LatestPrediction returns the newest record for the pair.
	// Returns ErrNotFound if no prediction exists.
	LatestPrediction(ctx context.Context, gameID, expertID string) (*PredictionRecord, error)

	// PredictionChain returns every version for the pair, oldest first.
	PredictionChain(ctx context.Context, gameID, expertID string) ([]*PredictionRecord, error)

	// LatestPredictions returns the newest record per expert for a game.
	LatestPredictions(ctx context.Context, gameID string) (map[string]*PredictionRecord, error)

	// SaveRevision records a belief revision event.
	SaveRevision(ctx context.Context, ev *RevisionEvent) error

	// Revisions returns a game's revision events, oldest first.
	Revisions(ctx context.Context, gameID string) ([]*RevisionEvent, error)

	// SaveConsensus stores the frozen consensus for a game.
	SaveConsensus(ctx context.Context, rec *ConsensusRecord) error

	// Consensus returns a game's consensus record.
	// Returns ErrNotFound if none has been computed.
	Consensus(ctx context.Context, gameID string) (*ConsensusRecord, error)

	// SaveOutcome stores a game's final outcome exactly once.
	// Returns ErrAlreadyExists on a repeat.
	SaveOutcome(ctx context.Context, gameID string, o OutcomeRecord) error

	// Outcome returns a game's stored outcome.
	Outcome(ctx context.Context, gameID string) (OutcomeRecord, error)

	// Count returns the number of games with at least one prediction.
	Count(ctx context.Context) int
}
