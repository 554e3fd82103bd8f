// Package revision versions pre-kickoff forecast changes as an append-only
// chain: each revision creates a new record referencing its predecessor and
// logs a BeliefRevisionEvent. Nothing is ever mutated in place.
package revision

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/validate"
	"github.com/okian/huddle/pkg/metrics"
)

// Change proposes a new prediction for one category. Numeric categories take
// Value, categorical ones take Choice; a zero Confidence keeps the old one.
type Change struct {
	Category   model.Category `json:"category"`
	Value      float64        `json:"value,omitempty"`
	Choice     string         `json:"choice,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithValidator sets the consistency validator revised records must pass.
func WithValidator(v *validate.Validator) Option {
	return func(t *Tracker) {
		if v != nil {
			t.validator = v
		}
	}
}

// WithSpreadAgreementThreshold aligns derived picks with the validator's threshold.
func WithSpreadAgreementThreshold(threshold float64) Option {
	return func(t *Tracker) {
		if threshold >= 0 {
			t.spreadThreshold = threshold
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDFunc overrides id generation, mainly for tests.
func WithIDFunc(f func() string) Option {
	return func(t *Tracker) {
		if f != nil {
			t.newID = f
		}
	}
}

// Tracker builds new prediction record versions from evidence-triggered changes.
type Tracker struct {
	validator       *validate.Validator
	spreadThreshold float64
	now             func() time.Time
	newID           func() string
}

// New creates a Tracker with configuration options.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		validator:       validate.New(),
		spreadThreshold: 3.0,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Revise applies changes to current and returns the next version plus its
// revision event. The prior version is untouched. Fails with StaleWindow at
// or after kickoff, and with the validator's violation error when the changed
// record would be internally inconsistent.
func (t *Tracker) Revise(ctx context.Context, g model.GameContext, current *model.PredictionRecord, trigger string, changes []Change) (*model.PredictionRecord, model.BeliefRevisionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.BeliefRevisionEvent{}, fmt.Errorf("revision cancelled: %w", err)
	}
	now := t.now()
	if !now.Before(g.Kickoff) {
		metrics.RecordRevisionRejected()
		return nil, model.BeliefRevisionEvent{}, &StaleWindowError{
			GameID:   g.GameID,
			ExpertID: current.ExpertID,
			Kickoff:  g.Kickoff,
			At:       now,
		}
	}
	if len(changes) == 0 {
		return nil, model.BeliefRevisionEvent{}, fmt.Errorf("%w: game %s expert %s", ErrEmptyRevision, g.GameID, current.ExpertID)
	}

	next := current.Clone()
	next.ID = t.newID()
	next.Version = current.Version + 1
	next.PrevID = current.ID
	next.CreatedAt = now

	fieldChanges := make([]model.FieldChange, 0, len(changes))
	changed := make(map[model.Category]bool, len(changes))
	for _, c := range changes {
		spec, ok := model.Spec(c.Category)
		if !ok {
			return nil, model.BeliefRevisionEvent{}, fmt.Errorf("%w: %s", ErrUnknownCategory, c.Category)
		}
		before := next.Categories[c.Category]
		after := before
		switch spec.Kind {
		case model.Numeric:
			after.Value = c.Value
		case model.Categorical:
			after.Choice = c.Choice
		}
		if c.Confidence > 0 {
			after.Confidence = c.Confidence
		}
		next.Categories[c.Category] = after
		changed[c.Category] = true
		fieldChanges = append(fieldChanges, model.FieldChange{Category: c.Category, Before: before, After: after})
	}

	// Keep finals and quarter splits summing, then realign the derived
	// categories with the revised inputs and validate.
	reconcileScores(next, changed)
	model.Derive(next, g, t.spreadThreshold)
	next.Reasoning = append(next.Reasoning, fmt.Sprintf("revised v%d: %s", next.Version, trigger))

	if err := t.validator.Check(g, next); err != nil {
		return nil, model.BeliefRevisionEvent{}, err
	}

	ev := model.BeliefRevisionEvent{
		ID:           t.newID(),
		GameID:       g.GameID,
		ExpertID:     current.ExpertID,
		RecordID:     next.ID,
		PrevRecordID: current.ID,
		Trigger:      trigger,
		Changes:      fieldChanges,
		ImpactScore:  impactScore(fieldChanges),
		CreatedAt:    now,
	}
	metrics.RecordRevision()
	return next, ev, nil
}

// reconcileScores restores the quarter-sum identity after a revision. A
// changed final rescales that team's quarter splits proportionally; changed
// quarters with an untouched final recompute the final from the quarter sum.
// When a revision sets both explicitly, the given values stand and the
// validator arbitrates.
func reconcileScores(rec *model.PredictionRecord, changed map[model.Category]bool) {
	reconcileTeam(rec, model.CategoryHomeScore, model.HomeQuarters, changed)
	reconcileTeam(rec, model.CategoryAwayScore, model.AwayQuarters, changed)
}

func reconcileTeam(rec *model.PredictionRecord, final model.Category, quarters []model.Category, changed map[model.Category]bool) {
	quartersChanged := false
	for _, q := range quarters {
		if changed[q] {
			quartersChanged = true
			break
		}
	}
	switch {
	case changed[final] && !quartersChanged:
		rescaleQuarters(rec, quarters, rec.Categories[final].Value)
	case quartersChanged && !changed[final]:
		var sum float64
		for _, q := range quarters {
			sum += rec.Categories[q].Value
		}
		p := rec.Categories[final]
		p.Value = sum
		rec.Categories[final] = p
	}
}

func rescaleQuarters(rec *model.PredictionRecord, quarters []model.Category, final float64) {
	var sum float64
	for _, q := range quarters {
		sum += rec.Categories[q].Value
	}
	var allocated float64
	for i, q := range quarters {
		p := rec.Categories[q]
		switch {
		case i == len(quarters)-1:
			p.Value = final - allocated // exact by construction
		case sum > 0:
			p.Value = final * p.Value / sum
			allocated += p.Value
		default:
			p.Value = final / float64(len(quarters))
			allocated += p.Value
		}
		rec.Categories[q] = p
	}
}

// impactScore is the mean normalized change magnitude across affected
// categories: numeric deltas are scaled by the category range, categorical
// flips count as 1.
func impactScore(changes []model.FieldChange) float64 {
	if len(changes) == 0 {
		return 0
	}
	var total float64
	for _, fc := range changes {
		spec, ok := model.Spec(fc.Category)
		if !ok {
			continue
		}
		switch spec.Kind {
		case model.Numeric:
			if r := spec.Range(); r > 0 {
				total += math.Min(1, math.Abs(fc.After.Value-fc.Before.Value)/r)
			}
		case model.Categorical:
			if fc.After.Choice != fc.Before.Choice {
				total++
			}
		}
	}
	score := total / float64(len(changes))
	return math.Max(0, math.Min(1, score))
}
