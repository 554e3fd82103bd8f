// Package predict produces one structured forecast per (expert, game),
// shaped by a composable pipeline of personality bias functions.
package predict

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/validate"
	"github.com/okian/huddle/pkg/metrics"
)

// Score clamps keep every derived category inside its schema range:
// finals in [7,47] bound the margin to [-40,40] and the total to [14,94].
const (
	minFinalScore = 7.0
	maxFinalScore = 47.0

	baseConfidence = 0.5
	minConfidence  = 0.05
	maxConfidence  = 0.95
)

// quarterProfile is the baseline share of points per quarter.
var quarterProfile = [4]float64{0.24, 0.26, 0.22, 0.28}

// Generator builds prediction records. One generator serves all experts:
// personality differences come from the bias pipeline, not per-expert code.
type Generator struct {
	validator       *validate.Validator
	biases          func(memories []model.EpisodicMemory) []Bias
	maxRetries      int
	spreadThreshold float64
	newID           func() string
	now             func() time.Time
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		validator:       validate.New(),
		biases:          defaultBiases,
		maxRetries:      3,
		spreadThreshold: 3.0,
		newID:           uuid.NewString,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a fully populated, validated record for (e, g).
// Retrieved memories are optional. Fails with MissingContext when mandatory
// context fields are absent; no partial record is ever returned.
func (gen *Generator) Generate(ctx context.Context, e *expert.Expert, g model.GameContext, memories []model.EpisodicMemory) (*model.PredictionRecord, error) {
	if missing := g.MissingFields(); len(missing) > 0 {
		metrics.RecordPredictionFailure("missing_context")
		return nil, &MissingContextError{GameID: g.GameID, Fields: missing}
	}

	rng := rand.New(rand.NewSource(seed(e.ID, g.GameID))) //nolint:gosec // non-cryptographic, seeded per (expert, game)

	var lastErr error
	for attempt := 0; attempt <= gen.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}

		rec := gen.build(e, g, memories, rng)
		if err := gen.validator.Check(g, rec); err != nil {
			metrics.RecordValidationFailure()
			lastErr = err
			continue
		}
		return rec, nil
	}
	metrics.RecordPredictionFailure("inconsistent")
	return nil, lastErr
}

// build runs the bias pipeline and freezes the forecast into a record.
func (gen *Generator) build(e *expert.Expert, g model.GameContext, memories []model.EpisodicMemory, rng *rand.Rand) *model.PredictionRecord {
	// Market baseline: home-line convention, spread negative for home favorites.
	f := &forecast{
		homeScore:   (g.Total - g.Spread) / 2,
		awayScore:   (g.Total + g.Spread) / 2,
		confidence:  baseConfidence,
		varianceAmp: baseVariance,
		rng:         rng,
	}
	f.note("market implies %s %.1f - %s %.1f (spread %+.1f, total %.1f)",
		g.HomeTeam, f.homeScore, g.AwayTeam, f.awayScore, g.Spread, g.Total)

	for _, bias := range gen.biases(memories) {
		bias(e, g, f)
	}

	f.homeScore = clamp(f.homeScore, minFinalScore, maxFinalScore)
	f.awayScore = clamp(f.awayScore, minFinalScore, maxFinalScore)

	rec := &model.PredictionRecord{
		ID:         gen.newID(),
		GameID:     g.GameID,
		ExpertID:   e.ID,
		Version:    1,
		CreatedAt:  gen.now(),
		Categories: make(map[model.Category]model.Prediction, len(model.Schema())),
	}

	gen.fillScores(e, f, rec)
	gen.fillAncillary(f, rec)
	model.Derive(rec, g, gen.spreadThreshold)
	gen.fillConfidences(e, f, rec)

	rec.Reasoning = f.trace
	return rec
}

// fillScores sets finals and quarter splits. Quarter shares are perturbed
// with risk-scaled noise and renormalized so each team's quarters sum exactly
// to its final; everything downstream comes from model.Derive.
func (gen *Generator) fillScores(e *expert.Expert, f *forecast, rec *model.PredictionRecord) {
	set := func(c model.Category, v float64) {
		rec.Categories[c] = model.Prediction{Category: c, Value: v}
	}

	set(model.CategoryHomeScore, f.homeScore)
	set(model.CategoryAwayScore, f.awayScore)

	noiseAmp := 0.02 * f.varianceAmp / baseVariance * (1 + e.Personality.RiskTaking)
	gen.splitQuarters(f, rec, model.HomeQuarters, f.homeScore, noiseAmp)
	gen.splitQuarters(f, rec, model.AwayQuarters, f.awayScore, noiseAmp)
}

func (gen *Generator) splitQuarters(f *forecast, rec *model.PredictionRecord, cats []model.Category, final float64, noiseAmp float64) {
	var weights [4]float64
	var sum float64
	for i := range weights {
		w := quarterProfile[i] + clamp(f.rng.NormFloat64()*noiseAmp, -0.08, 0.08)
		weights[i] = w
		sum += w
	}

	var allocated float64
	for i, c := range cats {
		var q float64
		if i == len(cats)-1 {
			q = final - allocated // exact by construction
		} else {
			q = final * weights[i] / sum
			allocated += q
		}
		rec.Categories[c] = model.Prediction{Category: c, Value: q}
	}
}

// fillAncillary sets turnovers and passing yardage with risk-scaled spread.
func (gen *Generator) fillAncillary(f *forecast, rec *model.PredictionRecord) {
	amp := f.varianceAmp / baseVariance
	set := func(c model.Category, v, lo, hi float64) {
		rec.Categories[c] = model.Prediction{Category: c, Value: clamp(v, lo, hi)}
	}
	set(model.CategoryHomeTurnovers, 1.5+f.rng.NormFloat64()*0.8*amp, 0, 7)
	set(model.CategoryAwayTurnovers, 1.5+f.rng.NormFloat64()*0.8*amp, 0, 7)
	set(model.CategoryHomePassYards, 140+f.homeScore*4+f.rng.NormFloat64()*25*amp, 0, 550)
	set(model.CategoryAwayPassYards, 140+f.awayScore*4+f.rng.NormFloat64()*25*amp, 0, 550)
}

// fillConfidences assigns per-category confidence shaped by the expert's
// weight vector, then averages into the overall confidence.
func (gen *Generator) fillConfidences(e *expert.Expert, f *forecast, rec *model.PredictionRecord) {
	base := clamp(f.confidence, minConfidence, maxConfidence)

	var total float64
	for _, spec := range model.Schema() {
		p := rec.Categories[spec.Name]
		w := clamp(e.Weights[spec.Name], 0.5, 1.5)
		p.Confidence = clamp(base*w*(0.9+0.2*f.rng.Float64()), minConfidence, maxConfidence)
		rec.Categories[spec.Name] = p
		total += p.Confidence
	}
	rec.OverallConfidence = clamp(total/float64(len(model.Schema())), 0, 1)
}

// seed derives the deterministic rng seed for an (expert, game) pair.
func seed(expertID, gameID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(expertID))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(gameID))
	return int64(h.Sum64()) //nolint:gosec // intentional wrap-around
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
