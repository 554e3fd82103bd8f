package model

import (
	"time"
)

// EmotionalTag labels how an outcome felt relative to the expert's conviction.
type EmotionalTag string

const (
	TagVindicated EmotionalTag = "vindicated" // high confidence, low surprise
	TagSatisfied  EmotionalTag = "satisfied"  // low confidence, low surprise
	TagStunned    EmotionalTag = "stunned"    // high confidence, high surprise
	TagHumbled    EmotionalTag = "humbled"    // low confidence, high surprise
)

// EpisodicMemory is a stored (context, outcome, reflection) tuple used for
// similarity-based recall. Append-only; created after the outcome is known.
type EpisodicMemory struct {
	ID       string `json:"id"`
	ExpertID string `json:"expert_id"`
	GameID   string `json:"game_id"`

	// Embedding is a fixed-dimension vector summarizing context plus outcome delta.
	Embedding []float64 `json:"embedding"`

	// SurpriseScore in [0,1]: 0 means the game went exactly as predicted.
	SurpriseScore float64      `json:"surprise_score"`
	EmotionalTag  EmotionalTag `json:"emotional_tag"`
	LessonText    string       `json:"lesson_text"`

	CreatedAt time.Time `json:"created_at"`
}

// Polarity directs how a peer lesson is applied.
type Polarity string

const (
	PolarityReinforce Polarity = "reinforce"
	PolarityInvert    Polarity = "invert"
)

// PeerLearningEvent carries a coarse lesson from one expert to others: only a
// scalar polarity and magnitude, never weights or methodology. Consumed once.
type PeerLearningEvent struct {
	ID            string   `json:"id"`
	GameID        string   `json:"game_id"`
	SourceExpert  string   `json:"source_expert"`
	TargetExperts []string `json:"target_experts"`
	Category      Category `json:"category"`
	Polarity      Polarity `json:"polarity"`
	Magnitude     float64  `json:"magnitude"`
	CreatedAt     time.Time `json:"created_at"`
}
