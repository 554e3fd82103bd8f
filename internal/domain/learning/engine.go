// Package learning updates expert weights and performance statistics from
// realized outcomes. The engine is the sole writer of WeightVector and
// PerformanceStats: updates for one expert are mutually exclusive while
// different experts update in parallel.
package learning

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/metrics"
)

// Weight clamps keep coefficients in a range the confidence shaping can use.
const (
	minWeight = 0.1
	maxWeight = 2.0

	accuracySmoothing = 0.2
	flatSlopeEpsilon  = 0.005
)

// UpdateSummary reports one expert's direct learning pass for one game.
// The peer broker consumes these as its committed weight snapshot view.
type UpdateSummary struct {
	ExpertID string
	GameID   string

	// GameAccuracy is the mean per-category accuracy (1 - normalized error).
	GameAccuracy float64

	// Surprise in [0,1] grows with error and with the conviction behind it.
	Surprise float64

	CategoryErrors  map[model.Category]float64
	CategoryDeltas  map[model.Category]float64
	CategoryCorrect map[model.Category]bool
}

// Engine applies outcome-driven weight updates.
type Engine struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	applied map[string]map[string]bool
	// deltas remembers direct update magnitudes per (expert, game, category)
	// so peer nudges can be clamped strictly below them.
	deltas map[string]map[string]map[model.Category]float64

	maxError    float64
	trendWindow int
	dampening   float64
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		locks:       make(map[string]*sync.Mutex),
		applied:     make(map[string]map[string]bool),
		deltas:      make(map[string]map[string]map[model.Category]float64),
		maxError:    1.0,
		trendWindow: 10,
		dampening:   0.25,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// expertLock returns the mutex serializing updates for one expert.
func (e *Engine) expertLock(expertID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[expertID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[expertID] = l
	}
	return l
}

// Apply runs one expert's learning pass for one game. Applying the same
// (expert, game) twice is an idempotent no-op signalled by DuplicateOutcome.
func (e *Engine) Apply(ctx context.Context, g model.GameContext, ex *expert.Expert, rec *model.PredictionRecord, o model.OutcomeRecord) (UpdateSummary, error) {
	if err := ctx.Err(); err != nil {
		return UpdateSummary{}, fmt.Errorf("learning cancelled: %w", err)
	}
	if !o.Final {
		return UpdateSummary{}, fmt.Errorf("%w: game %s", ErrOutcomeNotFinal, g.GameID)
	}

	lock := e.expertLock(ex.ID)
	lock.Lock()
	defer lock.Unlock()

	if e.alreadyApplied(ex.ID, g.GameID) {
		metrics.RecordDuplicateOutcome()
		return UpdateSummary{}, &DuplicateOutcomeError{GameID: g.GameID, ExpertID: ex.ID}
	}

	actual := model.ActualValues(g, o)
	summary := UpdateSummary{
		ExpertID:        ex.ID,
		GameID:          g.GameID,
		CategoryErrors:  make(map[model.Category]float64, len(model.Schema())),
		CategoryDeltas:  make(map[model.Category]float64, len(model.Schema())),
		CategoryCorrect: make(map[model.Category]bool, len(model.Schema())),
	}

	var accSum float64
	for _, spec := range model.Schema() {
		pred := rec.Categories[spec.Name]
		truth := actual[spec.Name]

		catErr, correct := e.categoryError(spec, pred, truth)
		delta := e.weightDelta(spec, ex.LearningRate, pred, truth, catErr, correct)

		ex.Weights[spec.Name] = clampWeight(ex.Weights[spec.Name] + delta)

		// Rolling per-category accuracy doubles as the consensus voting weight.
		acc := ex.Stats.CategoryAccuracy[spec.Name]
		ex.Stats.CategoryAccuracy[spec.Name] = acc + accuracySmoothing*((1-catErr)-acc)

		summary.CategoryErrors[spec.Name] = catErr
		summary.CategoryDeltas[spec.Name] = delta
		summary.CategoryCorrect[spec.Name] = correct
		accSum += 1 - catErr
	}

	summary.GameAccuracy = accSum / float64(len(model.Schema()))
	summary.Surprise = clamp01((1 - summary.GameAccuracy) * (0.5 + rec.OverallConfidence))

	e.updateStats(ex, summary.GameAccuracy)
	e.rememberDeltas(ex.ID, g.GameID, summary.CategoryDeltas)
	e.markApplied(ex.ID, g.GameID)

	metrics.RecordLearningUpdate()
	metrics.UpdateExpertAccuracy(ex.ID, ex.Stats.RollingAccuracy)
	return summary, nil
}

// categoryError returns the normalized error and a correctness flag:
// numeric categories use range-scaled distance, categoricals score 0/1.
func (e *Engine) categoryError(spec model.CategorySpec, pred, truth model.Prediction) (float64, bool) {
	switch spec.Kind {
	case model.Numeric:
		r := spec.Range()
		if r <= 0 {
			return 0, true
		}
		err := math.Min(math.Abs(pred.Value-truth.Value)/r, e.maxError)
		return err, err <= 0.1
	default:
		if pred.Choice == truth.Choice {
			return 0, true
		}
		return math.Min(1, e.maxError), false
	}
}

// weightDelta follows new_weight = old_weight + learning_rate x gradient.
// Numeric gradients point toward the realized value (undershoot raises the
// weight, overshoot lowers it); categorical misses push the weight down.
// Magnitude is bounded by learning_rate x maxError.
func (e *Engine) weightDelta(spec model.CategorySpec, learningRate float64, pred, truth model.Prediction, catErr float64, correct bool) float64 {
	switch spec.Kind {
	case model.Numeric:
		dir := 1.0
		if pred.Value > truth.Value {
			dir = -1
		}
		return learningRate * dir * catErr
	default:
		if correct {
			return 0
		}
		return -learningRate * catErr
	}
}

// updateStats refreshes the rolling window, accuracy and trend.
func (e *Engine) updateStats(ex *expert.Expert, gameAccuracy float64) {
	ex.Stats.SampleCount++
	ex.Stats.Recent = append(ex.Stats.Recent, gameAccuracy)
	if len(ex.Stats.Recent) > e.trendWindow {
		ex.Stats.Recent = ex.Stats.Recent[len(ex.Stats.Recent)-e.trendWindow:]
	}

	var sum float64
	for _, a := range ex.Stats.Recent {
		sum += a
	}
	ex.Stats.RollingAccuracy = sum / float64(len(ex.Stats.Recent))
	ex.Stats.Trend = trendOf(ex.Stats.Recent)
}

// trendOf classifies the least-squares slope of the recent accuracies.
func trendOf(recent []float64) expert.Trend {
	n := len(recent)
	if n < 2 {
		return expert.TrendFlat
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range recent {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return expert.TrendFlat
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	switch {
	case slope > flatSlopeEpsilon:
		return expert.TrendImproving
	case slope < -flatSlopeEpsilon:
		return expert.TrendDeclining
	default:
		return expert.TrendFlat
	}
}

// ApplyPeerNudge applies a strictly smaller-than-direct weight nudge from a
// peer lesson. Only the scalar polarity and magnitude cross expert
// boundaries; the nudge is clamped by the target's own direct update for the
// same game when one was recorded, scaled by the dampening factor either
// way. A recorded zero update suppresses the nudge entirely: a peer lesson
// never moves a weight the expert's own learning pass left alone.
func (e *Engine) ApplyPeerNudge(ctx context.Context, ex *expert.Expert, ev model.PeerLearningEvent) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("peer nudge cancelled: %w", err)
	}
	if _, ok := model.Spec(ev.Category); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, ev.Category)
	}

	lock := e.expertLock(ex.ID)
	lock.Lock()
	defer lock.Unlock()

	bound := ex.LearningRate * e.maxError
	if direct, recorded := e.directDelta(ex.ID, ev.GameID, ev.Category); recorded {
		bound = math.Abs(direct)
	}
	magnitude := e.dampening * math.Min(ev.Magnitude, bound)
	if magnitude <= 0 {
		return 0, nil
	}

	nudge := magnitude
	if ev.Polarity == model.PolarityInvert {
		nudge = -magnitude
	}
	ex.Weights[ev.Category] = clampWeight(ex.Weights[ev.Category] + nudge)

	metrics.RecordPeerNudgeApplied()
	return nudge, nil
}

func (e *Engine) alreadyApplied(expertID, gameID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied[expertID][gameID]
}

func (e *Engine) markApplied(expertID, gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied[expertID] == nil {
		e.applied[expertID] = make(map[string]bool)
	}
	e.applied[expertID][gameID] = true
}

func (e *Engine) rememberDeltas(expertID, gameID string, deltas map[model.Category]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deltas[expertID] == nil {
		e.deltas[expertID] = make(map[string]map[model.Category]float64)
	}
	copied := make(map[model.Category]float64, len(deltas))
	for k, v := range deltas {
		copied[k] = v
	}
	e.deltas[expertID][gameID] = copied
}

// directDelta reports the recorded direct update, distinguishing a zero
// update from no learning pass at all.
func (e *Engine) directDelta(expertID, gameID string, c model.Category) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	deltas, ok := e.deltas[expertID][gameID]
	if !ok {
		return 0, false
	}
	d, ok := deltas[c]
	return d, ok
}

func clampWeight(w float64) float64 {
	return math.Max(minWeight, math.Min(maxWeight, w))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
