// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/huddle/internal/adapters/repository"
	service "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/domain/consensus"
	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/learning"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/predict"
	"github.com/okian/huddle/internal/domain/revision"
	"github.com/okian/huddle/internal/domain/validate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RegisterGame(ctx context.Context, g model.GameContext) error
	GeneratePredictions(ctx context.Context, gameID string) (map[string]*model.PredictionRecord, error)
	Revise(ctx context.Context, gameID, expertID, trigger string, changes []revision.Change) (*model.PredictionRecord, error)
	GetConsensus(ctx context.Context, gameID string) (*model.ConsensusRecord, error)
	ApplyOutcome(ctx context.Context, gameID string, o model.OutcomeRecord) error
	Game(ctx context.Context, gameID string) (model.GameContext, model.GameState, error)
	PredictionChain(ctx context.Context, gameID, expertID string) ([]*model.PredictionRecord, error)
	Revisions(ctx context.Context, gameID string) ([]*model.BeliefRevisionEvent, error)
	Experts(ctx context.Context) []expert.Expert
	ExpertProfile(ctx context.Context, id string) (expert.Expert, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	gamesHandler   *GamesHandler
	expertsHandler *ExpertsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		gamesHandler:   NewGamesHandler(deps),
		expertsHandler: NewExpertsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/games", MetricsMiddleware(s.gamesHandler.HandlePostGame, "games"))
	mux.HandleFunc("/games/", MetricsMiddleware(s.gamesHandler.HandleGameSubroutes, "games"))
	mux.HandleFunc("/experts", MetricsMiddleware(s.expertsHandler.HandleListExperts, "experts"))
	mux.HandleFunc("/experts/", MetricsMiddleware(s.expertsHandler.HandleGetExpert, "experts"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain failures onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, predict.ErrMissingContext):
		writeError(w, http.StatusUnprocessableEntity, "missing_context", err)
	case errors.Is(err, validate.ErrInconsistentPrediction):
		writeError(w, http.StatusUnprocessableEntity, "inconsistent_prediction", err)
	case errors.Is(err, revision.ErrStaleWindow):
		writeError(w, http.StatusConflict, "stale_window", err)
	case errors.Is(err, revision.ErrEmptyRevision):
		writeError(w, http.StatusBadRequest, "empty_revision", err)
	case errors.Is(err, learning.ErrDuplicateOutcome):
		writeError(w, http.StatusConflict, "duplicate_outcome", err)
	case errors.Is(err, learning.ErrOutcomeNotFinal):
		writeError(w, http.StatusBadRequest, "outcome_not_final", err)
	case errors.Is(err, consensus.ErrIncomplete):
		writeError(w, http.StatusConflict, "incomplete", err)
	case errors.Is(err, service.ErrGameExists):
		writeError(w, http.StatusConflict, "game_exists", err)
	case errors.Is(err, service.ErrBadTransition):
		writeError(w, http.StatusConflict, "bad_transition", err)
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, expert.ErrUnknownExpert),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
