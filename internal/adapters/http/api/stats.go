package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/huddle/internal/app"
)

// StatsProvider exposes the ensemble's runtime snapshot.
type StatsProvider interface {
	GetStats() service.Stats
}

// StatsHandler serves the runtime snapshot for monitoring.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(h.statsProvider.GetStats())
}
