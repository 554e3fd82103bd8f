package model

import (
	"time"
)

// Prediction is one category's forecast: a numeric value or a categorical
// choice, plus the expert's confidence in it.
type Prediction struct {
	Category   Category `json:"category"`
	Value      float64  `json:"value,omitempty"`
	Choice     string   `json:"choice,omitempty"`
	Confidence float64  `json:"confidence"`
}

// PredictionRecord is one expert's full structured forecast for one game.
// Records form an append-only version chain: revisions create a new record
// referencing its predecessor via PrevID, originals are retained.
type PredictionRecord struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	ExpertID  string    `json:"expert_id"`
	Version   int       `json:"version"`
	PrevID    string    `json:"prev_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Categories map[Category]Prediction `json:"categories"`

	// WinProbHome and WinProbAway are mutually exclusive probabilities and
	// must sum to 1.
	WinProbHome float64 `json:"win_prob_home"`
	WinProbAway float64 `json:"win_prob_away"`

	// Reasoning is the ordered trace of how the forecast was formed.
	Reasoning []string `json:"reasoning"`

	OverallConfidence float64 `json:"overall_confidence"`
}

// Get returns the prediction for a category.
func (r *PredictionRecord) Get(c Category) (Prediction, bool) {
	p, ok := r.Categories[c]
	return p, ok
}

// Clone returns a deep copy suitable for building the next version.
func (r *PredictionRecord) Clone() *PredictionRecord {
	out := *r
	out.Categories = make(map[Category]Prediction, len(r.Categories))
	for k, v := range r.Categories {
		out.Categories[k] = v
	}
	out.Reasoning = make([]string, len(r.Reasoning))
	copy(out.Reasoning, r.Reasoning)
	return &out
}

// FieldChange records a single category's before/after values in a revision.
type FieldChange struct {
	Category Category   `json:"category"`
	Before   Prediction `json:"before"`
	After    Prediction `json:"after"`
}

// BeliefRevisionEvent logs one pre-kickoff forecast change. Append-only.
type BeliefRevisionEvent struct {
	ID           string        `json:"id"`
	GameID       string        `json:"game_id"`
	ExpertID     string        `json:"expert_id"`
	RecordID     string        `json:"record_id"` // the new version created by the revision
	PrevRecordID string        `json:"prev_record_id"`
	Trigger      string        `json:"trigger"`
	Changes      []FieldChange `json:"changes"`
	ImpactScore  float64       `json:"impact_score"`
	CreatedAt    time.Time     `json:"created_at"`
}
