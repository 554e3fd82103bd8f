// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"
)

// ExpertsHandler handles roster requests.
type ExpertsHandler struct {
	deps Dependencies
}

// NewExpertsHandler creates a new experts handler.
func NewExpertsHandler(deps Dependencies) *ExpertsHandler {
	return &ExpertsHandler{deps: deps}
}

// HandleListExperts handles GET /experts requests.
func (h *ExpertsHandler) HandleListExperts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Experts(r.Context()))
}

// HandleGetExpert handles GET /experts/{id} requests.
func (h *ExpertsHandler) HandleGetExpert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/experts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing expert id"))
		return
	}
	ex, err := h.deps.ExpertProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}
