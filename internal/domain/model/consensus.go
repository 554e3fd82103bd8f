package model

import (
	"time"
)

// CategoryConsensus is the merged ensemble view for one (game, category).
type CategoryConsensus struct {
	Category Category `json:"category"`
	Value    float64  `json:"value,omitempty"`
	Choice   string   `json:"choice,omitempty"`

	// AgreementRatio is the fraction of total expert weight mass agreeing
	// with the winning choice (categorical) or falling within tolerance of
	// the weighted mean (numeric).
	AgreementRatio float64 `json:"agreement_ratio"`
}

// ConsensusRecord merges all experts' forecasts for a game into one weighted view.
type ConsensusRecord struct {
	GameID     string                         `json:"game_id"`
	Categories map[Category]CategoryConsensus `json:"categories"`

	// Contributors lists expert ids whose records entered the aggregation;
	// Excluded lists active experts left out in degraded mode.
	Contributors []string `json:"contributors"`
	Excluded     []string `json:"excluded,omitempty"`
	Degraded     bool     `json:"degraded"`

	ComputedAt time.Time `json:"computed_at"`
}

// Agreement returns the agreement ratio of the winner category, the headline
// measure of ensemble consensus.
func (c ConsensusRecord) Agreement() float64 {
	return c.Categories[CategoryWinner].AgreementRatio
}
