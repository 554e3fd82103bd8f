// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/revision"
)

// GamesHandler handles game lifecycle requests.
type GamesHandler struct {
	deps Dependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps Dependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// HandlePostGame handles POST /games requests.
func (h *GamesHandler) HandlePostGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var g model.GameContext
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.RegisterGame(r.Context(), g); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"game_id": g.GameID,
		"state":   string(model.GameScheduled),
	})
}

// HandleGameSubroutes dispatches /games/{id}[/...] requests.
func (h *GamesHandler) HandleGameSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/games/")
	parts := strings.Split(path, "/")
	if parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing game id"))
		return
	}
	gameID := parts[0]

	switch {
	case len(parts) == 1:
		h.handleGetGame(w, r, gameID)
	case len(parts) == 2 && parts[1] == "predictions":
		h.handlePostPredictions(w, r, gameID)
	case len(parts) == 3 && parts[1] == "predictions":
		h.handleGetChain(w, r, gameID, parts[2])
	case len(parts) == 2 && parts[1] == "revisions":
		h.handleRevisions(w, r, gameID)
	case len(parts) == 2 && parts[1] == "consensus":
		h.handleGetConsensus(w, r, gameID)
	case len(parts) == 2 && parts[1] == "outcome":
		h.handlePostOutcome(w, r, gameID)
	default:
		http.NotFound(w, r)
	}
}

func (h *GamesHandler) handleGetGame(w http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	g, state, err := h.deps.Game(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game":  g,
		"state": state,
	})
}

func (h *GamesHandler) handlePostPredictions(w http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	records, err := h.deps.GeneratePredictions(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, records)
}

func (h *GamesHandler) handleGetChain(w http.ResponseWriter, r *http.Request, gameID, expertID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	chain, err := h.deps.PredictionChain(r.Context(), gameID, expertID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

// revisionRequest mirrors the POST /games/{id}/revisions schema.
type revisionRequest struct {
	ExpertID string `json:"expert_id"`
	Trigger  string `json:"trigger"`
	Changes  []struct {
		Category   string   `json:"category"`
		Value      *float64 `json:"value,omitempty"`
		Choice     string   `json:"choice,omitempty"`
		Confidence *float64 `json:"confidence,omitempty"`
	} `json:"changes"`
}

func (req revisionRequest) validate() error {
	switch {
	case strings.TrimSpace(req.ExpertID) == "":
		return errors.New("missing expert_id")
	case strings.TrimSpace(req.Trigger) == "":
		return errors.New("missing trigger")
	case len(req.Changes) == 0:
		return errors.New("missing changes")
	}
	return nil
}

func (h *GamesHandler) handleRevisions(w http.ResponseWriter, r *http.Request, gameID string) {
	switch r.Method {
	case http.MethodGet:
		events, err := h.deps.Revisions(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	case http.MethodPost:
		var req revisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}

		changes := make([]revision.Change, 0, len(req.Changes))
		for _, c := range req.Changes {
			ch := revision.Change{
				Category: model.Category(c.Category),
				Choice:   c.Choice,
			}
			if c.Value != nil {
				ch.Value = *c.Value
			}
			if c.Confidence != nil {
				ch.Confidence = *c.Confidence
			}
			changes = append(changes, ch)
		}

		revised, err := h.deps.Revise(r.Context(), gameID, req.ExpertID, req.Trigger, changes)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, revised)
	default:
		http.NotFound(w, r)
	}
}

func (h *GamesHandler) handleGetConsensus(w http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rec, err := h.deps.GetConsensus(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *GamesHandler) handlePostOutcome(w http.ResponseWriter, r *http.Request, gameID string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var o model.OutcomeRecord
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	o.GameID = gameID
	if err := h.deps.ApplyOutcome(r.Context(), gameID, o); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"game_id": gameID,
		"state":   string(model.GameArchived),
	})
}
