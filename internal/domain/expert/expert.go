// Package expert defines the forecasting agents: fixed personality traits,
// evolving per-category weights, and rolling performance statistics.
package expert

import (
	"fmt"

	"github.com/okian/huddle/internal/domain/model"
)

// Trait names the seven personality dimensions.
type Trait string

const (
	TraitRiskTaking   Trait = "risk_taking"
	TraitOptimism     Trait = "optimism"
	TraitAnalytical   Trait = "analytical"
	TraitContrarian   Trait = "contrarian"
	TraitMomentum     Trait = "momentum"
	TraitValueSeeking Trait = "value_seeking"
	TraitEmotional    Trait = "emotional"
)

// Traits lists all trait names in stable order.
var Traits = []Trait{
	TraitRiskTaking,
	TraitOptimism,
	TraitAnalytical,
	TraitContrarian,
	TraitMomentum,
	TraitValueSeeking,
	TraitEmotional,
}

// PersonalityVector holds the seven fixed behavioral traits, each in [0,1].
type PersonalityVector struct {
	RiskTaking   float64 `json:"risk_taking" koanf:"risk_taking"`
	Optimism     float64 `json:"optimism" koanf:"optimism"`
	Analytical   float64 `json:"analytical" koanf:"analytical"`
	Contrarian   float64 `json:"contrarian" koanf:"contrarian"`
	Momentum     float64 `json:"momentum" koanf:"momentum"`
	ValueSeeking float64 `json:"value_seeking" koanf:"value_seeking"`
	Emotional    float64 `json:"emotional" koanf:"emotional"`
}

// Get returns the value of a trait by name.
func (p PersonalityVector) Get(t Trait) float64 {
	switch t {
	case TraitRiskTaking:
		return p.RiskTaking
	case TraitOptimism:
		return p.Optimism
	case TraitAnalytical:
		return p.Analytical
	case TraitContrarian:
		return p.Contrarian
	case TraitMomentum:
		return p.Momentum
	case TraitValueSeeking:
		return p.ValueSeeking
	case TraitEmotional:
		return p.Emotional
	default:
		return 0
	}
}

// Validate rejects traits outside [0,1].
func (p PersonalityVector) Validate() error {
	for _, t := range Traits {
		if v := p.Get(t); v < 0 || v > 1 {
			return fmt.Errorf("%w: trait %s = %v", ErrInvalidTrait, t, v)
		}
	}
	return nil
}

// WeightVector maps categories to the expert's internal feature coefficients.
// Mutated only by the learning engine.
type WeightVector map[model.Category]float64

// NewWeightVector builds a neutral weight vector covering the full schema.
func NewWeightVector() WeightVector {
	w := make(WeightVector, len(model.Schema()))
	for _, s := range model.Schema() {
		w[s.Name] = 1.0
	}
	return w
}

// Clone returns a copy of the weight vector.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Trend classifies the direction of an expert's recent accuracy.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendFlat      Trend = "flat"
	TrendDeclining Trend = "declining"
)

// PerformanceStats tracks rolling accuracy per expert. Written only by the
// learning engine.
type PerformanceStats struct {
	RollingAccuracy float64 `json:"rolling_accuracy"`
	SampleCount     int     `json:"sample_count"`
	Trend           Trend   `json:"trend"`

	// CategoryAccuracy is the rolling per-category accuracy used as the
	// expert's voting weight during consensus aggregation.
	CategoryAccuracy map[model.Category]float64 `json:"category_accuracy"`

	// Recent keeps the last N per-game accuracies for the trend slope.
	Recent []float64 `json:"recent"`
}

// NewPerformanceStats builds empty stats with neutral category accuracies.
func NewPerformanceStats() PerformanceStats {
	acc := make(map[model.Category]float64, len(model.Schema()))
	for _, s := range model.Schema() {
		acc[s.Name] = 0.5
	}
	return PerformanceStats{
		Trend:            TrendFlat,
		CategoryAccuracy: acc,
	}
}

// Clone returns a deep copy of the stats.
func (s PerformanceStats) Clone() PerformanceStats {
	out := s
	out.CategoryAccuracy = make(map[model.Category]float64, len(s.CategoryAccuracy))
	for k, v := range s.CategoryAccuracy {
		out.CategoryAccuracy[k] = v
	}
	out.Recent = make([]float64, len(s.Recent))
	copy(out.Recent, s.Recent)
	return out
}

// Expert is an independent forecasting agent. Personality and LearningRate
// are fixed at creation for the expert's lifetime; Weights and Stats evolve
// under the learning engine only. Experts are never deleted.
type Expert struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Personality PersonalityVector `json:"personality"`

	// LearningRate in (0,1), immutable after creation. Fast learners swing
	// further per game.
	LearningRate float64 `json:"learning_rate"`

	Weights WeightVector     `json:"weights"`
	Stats   PerformanceStats `json:"stats"`
}

// New creates an expert with neutral weights and empty stats.
func New(id, name string, p PersonalityVector, learningRate float64) (*Expert, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if learningRate <= 0 || learningRate >= 1 {
		return nil, fmt.Errorf("%w: learning_rate = %v", ErrInvalidLearningRate, learningRate)
	}
	return &Expert{
		ID:           id,
		Name:         name,
		Personality:  p,
		LearningRate: learningRate,
		Weights:      NewWeightVector(),
		Stats:        NewPerformanceStats(),
	}, nil
}

// Snapshot returns a deep copy safe to hand to readers while the learning
// engine keeps mutating the original.
func (e *Expert) Snapshot() Expert {
	out := *e
	out.Weights = e.Weights.Clone()
	out.Stats = e.Stats.Clone()
	return out
}
