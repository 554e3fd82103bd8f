// Package service wires the expert roster, forecast generation, consensus
// and learning into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	memorystore "github.com/okian/huddle/internal/adapters/memory"
	eventqueue "github.com/okian/huddle/internal/adapters/mq/queue"
	workerpool "github.com/okian/huddle/internal/adapters/mq/worker"
	"github.com/okian/huddle/internal/adapters/repository"
	"github.com/okian/huddle/internal/domain/consensus"
	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/learning"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/peer"
	"github.com/okian/huddle/internal/domain/predict"
	"github.com/okian/huddle/internal/domain/revision"
	"github.com/okian/huddle/internal/domain/validate"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// trackedGame pairs a game's immutable context with its lifecycle state.
type trackedGame struct {
	mu    sync.Mutex
	ctx   model.GameContext
	state model.GameState
}

// advance moves the game along one legal state edge.
func (t *trackedGame) advance(next model.GameState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, t.state, next)
	}
	t.state = next
	return nil
}

func (t *trackedGame) current() model.GameState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Service implements the ensemble operations behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	roster     *expert.Roster
	store      repository.Store
	memories   memorystore.Store
	generator  *predict.Generator
	tracker    *revision.Tracker
	engine     *learning.Engine
	broker     *peer.Broker
	barrier    *consensus.Barrier
	aggregator *consensus.Aggregator
	peerQueue  eventqueue.Queue
	workerPool *workerpool.Pool

	games map[string]*trackedGame

	// Configuration
	quorumSize          int
	consensusTimeout    time.Duration
	workerCount         int
	queueSize           int
	memoryTopK          int
	embeddingDim        int
	trendWindow         int
	maxRetries          int
	peerDampening       float64
	confidenceThreshold float64
	spreadThreshold     float64
	maxErrorMagnitude   float64

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		games:               make(map[string]*trackedGame),
		quorumSize:          0, // 0 means the full roster
		consensusTimeout:    5 * time.Second,
		workerCount:         runtime.NumCPU(),
		queueSize:           10000,
		memoryTopK:          5,
		embeddingDim:        16,
		trendWindow:         10,
		maxRetries:          3,
		peerDampening:       0.25,
		confidenceThreshold: 0.75,
		spreadThreshold:     3.0,
		maxErrorMagnitude:   1.0,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("ensemble")
	}

	s.logger.Info(ctx, "starting ensemble service...")

	if s.roster == nil {
		s.roster = expert.DefaultRoster()
	}
	if s.store == nil {
		s.store = repository.NewInMemoryStore()
	}
	if s.memories == nil {
		s.memories = memorystore.NewInMemoryStore(
			memorystore.WithDimension(s.embeddingDim),
		)
	}

	validator := validate.New(
		validate.WithSpreadAgreementThreshold(s.spreadThreshold),
	)
	s.generator = predict.New(
		predict.WithValidator(validator),
		predict.WithMaxRetries(s.maxRetries),
		predict.WithSpreadAgreementThreshold(s.spreadThreshold),
	)
	s.tracker = revision.New(
		revision.WithValidator(validator),
		revision.WithSpreadAgreementThreshold(s.spreadThreshold),
	)
	s.engine = learning.New(
		learning.WithMaxErrorMagnitude(s.maxErrorMagnitude),
		learning.WithTrendWindow(s.trendWindow),
		learning.WithPeerDampening(s.peerDampening),
	)
	s.broker = peer.New(
		peer.WithConfidenceThreshold(s.confidenceThreshold),
	)
	s.barrier = consensus.NewBarrier(s.consensusTimeout)
	s.aggregator = consensus.NewAggregator()

	s.peerQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.peerQueue, s.engine, s.roster)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ensemble service started",
		logger.Int("experts", s.roster.Size()),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ensemble service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "ensemble service stopped")
}

// RegisterGame starts tracking a game. The context must be complete enough
// to generate from; incomplete contexts fail fast with the missing fields.
func (s *Service) RegisterGame(ctx context.Context, g model.GameContext) error {
	if missing := g.MissingFields(); len(missing) > 0 {
		return &predict.MissingContextError{GameID: g.GameID, Fields: missing}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.GameID]; ok {
		return fmt.Errorf("%w: game %s", ErrGameExists, g.GameID)
	}
	s.games[g.GameID] = &trackedGame{ctx: g, state: model.GameScheduled}
	s.barrier.Register(g.GameID, s.expectedArrivals())
	metrics.UpdateGamesTracked(len(s.games))

	s.logger.Info(ctx, "game registered",
		logger.String("game_id", g.GameID),
		logger.String("matchup", g.AwayTeam+" @ "+g.HomeTeam),
	)
	return nil
}

// GeneratePredictions runs every expert against the game in parallel. One
// expert failing to produce a valid forecast does not block the rest.
func (s *Service) GeneratePredictions(ctx context.Context, gameID string) (map[string]*model.PredictionRecord, error) {
	tg, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	if err := tg.advance(model.PredictionsCollected); err != nil {
		return nil, err
	}

	query := memorystore.DefaultEmbedding(tg.ctx, model.OutcomeRecord{}, 0)

	var mu sync.Mutex
	records := make(map[string]*model.PredictionRecord, s.roster.Size())
	var failures []string

	eg, egCtx := errgroup.WithContext(ctx)
	for _, ex := range s.roster.All() {
		ex := ex
		eg.Go(func() error {
			recalled := s.recall(egCtx, ex.ID, query)

			start := time.Now()
			rec, err := s.generator.Generate(egCtx, ex, tg.ctx, recalled)
			metrics.RecordGenerationLatency(time.Since(start).Seconds())
			if err != nil {
				s.logger.Warn(egCtx, "expert failed to generate",
					logger.String("game_id", gameID),
					logger.String("expert_id", ex.ID),
					logger.Error(err),
				)
				mu.Lock()
				failures = append(failures, ex.ID)
				mu.Unlock()
				return nil
			}

			if err := s.store.SavePrediction(egCtx, rec); err != nil {
				s.logger.Error(egCtx, "failed to persist prediction",
					logger.String("game_id", gameID),
					logger.String("expert_id", ex.ID),
					logger.Error(err),
				)
				mu.Lock()
				failures = append(failures, ex.ID)
				mu.Unlock()
				return nil
			}

			s.barrier.Arrive(gameID, ex.ID)
			metrics.RecordPredictionGenerated()

			mu.Lock()
			records[ex.ID] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("prediction batch: %w", err)
	}

	if len(records) == 0 {
		return nil, &consensus.IncompleteError{GameID: gameID, Missing: failures}
	}

	s.logger.Info(ctx, "predictions collected",
		logger.String("game_id", gameID),
		logger.Int("arrived", len(records)),
		logger.Int("failed", len(failures)),
	)
	return records, nil
}

// recall drains the expert's nearest memories up to the configured top-K.
func (s *Service) recall(ctx context.Context, expertID string, query []float64) []model.EpisodicMemory {
	var out []model.EpisodicMemory
	for m := range s.memories.Nearest(ctx, expertID, query, s.memoryTopK) {
		out = append(out, m)
	}
	return out
}

// Revise applies an expert's pre-kickoff belief revision, extending the
// prediction chain and recording the revision event.
func (s *Service) Revise(ctx context.Context, gameID, expertID, trigger string, changes []revision.Change) (*model.PredictionRecord, error) {
	tg, err := s.game(gameID)
	if err != nil {
		return nil, err
	}
	// Revisions are only legal while the prediction window is open.
	switch st := tg.current(); st {
	case model.PredictionsCollected:
	case model.OutcomeApplied, model.GameArchived:
		return nil, fmt.Errorf("%w: game %s already settled", revision.ErrStaleWindow, gameID)
	case model.ConsensusComputed, model.OutcomeAwaited:
		return nil, fmt.Errorf("%w: consensus for game %s is frozen", revision.ErrStaleWindow, gameID)
	default:
		return nil, fmt.Errorf("%w: game %s has no predictions to revise", ErrBadTransition, gameID)
	}

	current, err := s.store.LatestPrediction(ctx, gameID, expertID)
	if err != nil {
		return nil, err
	}

	revised, event, err := s.tracker.Revise(ctx, tg.ctx, current, trigger, changes)
	if err != nil {
		return nil, err
	}

	if err := s.store.SavePrediction(ctx, revised); err != nil {
		return nil, fmt.Errorf("persist revision: %w", err)
	}
	if err := s.store.SaveRevision(ctx, &event); err != nil {
		return nil, fmt.Errorf("persist revision event: %w", err)
	}

	metrics.RecordRevision()
	s.logger.Info(ctx, "belief revised",
		logger.String("game_id", gameID),
		logger.String("expert_id", expertID),
		logger.String("trigger", trigger),
		logger.Float64("impact", event.ImpactScore),
	)
	return revised, nil
}

// GetConsensus returns the game's consensus, computing and freezing it on
// first request. A quorum that never arrives within the timeout produces a
// degraded consensus from whoever did arrive.
func (s *Service) GetConsensus(ctx context.Context, gameID string) (*model.ConsensusRecord, error) {
	tg, err := s.game(gameID)
	if err != nil {
		return nil, err
	}

	if rec, err := s.store.Consensus(ctx, gameID); err == nil {
		return rec, nil
	}

	arrived, complete := s.barrier.Wait(ctx, gameID)
	if len(arrived) == 0 {
		return nil, &consensus.IncompleteError{GameID: gameID, Missing: s.roster.IDs()}
	}

	latest, err := s.store.LatestPredictions(ctx, gameID)
	if err != nil {
		return nil, err
	}
	records := make(map[string]*model.PredictionRecord, len(arrived))
	for _, id := range arrived {
		if rec, ok := latest[id]; ok {
			records[id] = rec
		}
	}

	rec, err := s.aggregator.Aggregate(ctx, gameID, s.roster, records, !complete)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveConsensus(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist consensus: %w", err)
	}
	s.barrier.Forget(gameID)

	if err := tg.advance(model.ConsensusComputed); err != nil {
		return nil, err
	}
	if err := tg.advance(model.OutcomeAwaited); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "consensus frozen",
		logger.String("game_id", gameID),
		logger.Int("contributors", len(rec.Contributors)),
		logger.Bool("degraded", rec.Degraded),
		logger.Float64("agreement", rec.Agreement()),
	)
	return rec, nil
}

// ApplyOutcome settles a game: every expert learns from the realized result,
// stores an episodic memory, and high-conviction lessons fan out to peers.
// A repeated outcome for the same game is rejected without side effects.
func (s *Service) ApplyOutcome(ctx context.Context, gameID string, o model.OutcomeRecord) error {
	tg, err := s.game(gameID)
	if err != nil {
		return err
	}
	if !o.Final {
		return fmt.Errorf("%w: game %s", learning.ErrOutcomeNotFinal, gameID)
	}

	// Consensus must be frozen before the outcome lands, and nothing is
	// persisted for a game the state machine cannot settle.
	switch tg.current() {
	case model.PredictionsCollected:
		if _, err := s.GetConsensus(ctx, gameID); err != nil {
			return fmt.Errorf("freeze consensus before outcome: %w", err)
		}
	case model.ConsensusComputed, model.OutcomeAwaited:
	case model.OutcomeApplied, model.GameArchived:
		metrics.RecordDuplicateOutcome()
		return &learning.DuplicateOutcomeError{GameID: gameID}
	default:
		return fmt.Errorf("%w: game %s has no predictions to settle", ErrBadTransition, gameID)
	}

	if err := s.store.SaveOutcome(ctx, gameID, o); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			metrics.RecordDuplicateOutcome()
			return &learning.DuplicateOutcomeError{GameID: gameID}
		}
		return err
	}

	latest, err := s.store.LatestPredictions(ctx, gameID)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	summaries := make(map[string]learning.UpdateSummary, len(latest))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, ex := range s.roster.All() {
		ex := ex
		rec, ok := latest[ex.ID]
		if !ok {
			continue
		}
		eg.Go(func() error {
			sum, err := s.engine.Apply(egCtx, tg.ctx, ex, rec, o)
			if err != nil {
				if errors.Is(err, learning.ErrDuplicateOutcome) {
					return nil
				}
				return fmt.Errorf("expert %s learning: %w", ex.ID, err)
			}

			s.storeMemory(egCtx, tg.ctx, ex.ID, rec, o, sum)

			mu.Lock()
			summaries[ex.ID] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	emitted := s.broker.Publish(ctx, s.peerQueue, s.roster, latest, summaries)

	if err := tg.advance(model.OutcomeApplied); err != nil {
		return err
	}
	if err := tg.advance(model.GameArchived); err != nil {
		return err
	}

	s.logger.Info(ctx, "outcome applied",
		logger.String("game_id", gameID),
		logger.Int("experts_updated", len(summaries)),
		logger.Int("peer_lessons", emitted),
	)
	return nil
}

// storeMemory writes one expert's episodic memory for a settled game.
func (s *Service) storeMemory(ctx context.Context, g model.GameContext, expertID string, rec *model.PredictionRecord, o model.OutcomeRecord, sum learning.UpdateSummary) {
	predictedMargin, _ := rec.Get(model.CategoryMargin)
	actualMargin := o.HomeScore - o.AwayScore
	delta := actualMargin - predictedMargin.Value

	mem := model.EpisodicMemory{
		ExpertID:      expertID,
		GameID:        g.GameID,
		Embedding:     memorystore.DefaultEmbedding(g, o, delta),
		SurpriseScore: sum.Surprise,
		EmotionalTag:  emotionalTag(rec.OverallConfidence, sum, s.confidenceThreshold),
		LessonText:    lessonText(g, rec, o, sum),
	}
	if _, err := s.memories.Insert(ctx, mem); err != nil {
		s.logger.Warn(ctx, "failed to store memory",
			logger.String("game_id", g.GameID),
			logger.String("expert_id", expertID),
			logger.Error(err),
		)
	}
}

// emotionalTag crosses conviction with surprise into one of four labels.
func emotionalTag(confidence float64, sum learning.UpdateSummary, threshold float64) model.EmotionalTag {
	confident := confidence >= threshold
	wrong := !sum.CategoryCorrect[model.CategoryWinner]
	switch {
	case confident && !wrong:
		return model.TagVindicated
	case !confident && !wrong:
		return model.TagSatisfied
	case confident && wrong:
		return model.TagStunned
	default:
		return model.TagHumbled
	}
}

// lessonText is a one-line reflection attached to the memory.
func lessonText(g model.GameContext, rec *model.PredictionRecord, o model.OutcomeRecord, sum learning.UpdateSummary) string {
	picked, _ := rec.Get(model.CategoryWinner)
	return fmt.Sprintf("%s @ %s: picked %s, result %s %.0f-%.0f, accuracy %.2f",
		g.AwayTeam, g.HomeTeam, picked.Choice, o.Winner(), o.HomeScore, o.AwayScore, sum.GameAccuracy)
}

// Game returns a tracked game's context and lifecycle state.
func (s *Service) Game(ctx context.Context, gameID string) (model.GameContext, model.GameState, error) {
	tg, err := s.game(gameID)
	if err != nil {
		return model.GameContext{}, "", err
	}
	return tg.ctx, tg.current(), nil
}

// PredictionChain returns every stored version for a (game, expert) pair.
func (s *Service) PredictionChain(ctx context.Context, gameID, expertID string) ([]*model.PredictionRecord, error) {
	return s.store.PredictionChain(ctx, gameID, expertID)
}

// Revisions returns a game's belief revision events, oldest first.
func (s *Service) Revisions(ctx context.Context, gameID string) ([]*model.BeliefRevisionEvent, error) {
	return s.store.Revisions(ctx, gameID)
}

// Experts returns snapshots of the full roster.
func (s *Service) Experts(ctx context.Context) []expert.Expert {
	all := s.roster.All()
	out := make([]expert.Expert, 0, len(all))
	for _, ex := range all {
		out = append(out, ex.Snapshot())
	}
	return out
}

// ExpertProfile returns one expert's snapshot.
func (s *Service) ExpertProfile(ctx context.Context, id string) (expert.Expert, error) {
	ex, err := s.roster.Get(id)
	if err != nil {
		return expert.Expert{}, err
	}
	return ex.Snapshot(), nil
}

// Stats is the runtime snapshot served for monitoring.
type Stats struct {
	Started        bool `json:"started"`
	WorkerCount    int  `json:"workerCount"`
	QueueSize      int  `json:"queueSize"`
	Experts        int  `json:"experts"`
	QueueLength    int  `json:"queueLength"`
	GamesTracked   int  `json:"gamesTracked"`
	MemoriesStored int  `json:"memoriesStored"`
}

// GetStats returns service statistics for monitoring and refreshes the
// matching gauges as a side effect.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := Stats{
		Started:     s.started,
		WorkerCount: s.workerCount,
		QueueSize:   s.queueSize,
	}

	if s.started {
		stats.Experts = s.roster.Size()
		stats.QueueLength = s.peerQueue.Len(ctx)
		stats.GamesTracked = len(s.games)
		stats.MemoriesStored = s.memories.Count(ctx)

		metrics.UpdateQueueSize(stats.QueueLength)
		metrics.UpdateGamesTracked(stats.GamesTracked)
		metrics.UpdateMemoriesTotal(stats.MemoriesStored)
	}

	return stats
}

// expectedArrivals resolves the quorum for a new game.
func (s *Service) expectedArrivals() int {
	if s.quorumSize > 0 && s.quorumSize <= s.roster.Size() {
		return s.quorumSize
	}
	return s.roster.Size()
}

func (s *Service) game(gameID string) (*trackedGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tg, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: game %s", ErrGameNotFound, gameID)
	}
	return tg, nil
}
