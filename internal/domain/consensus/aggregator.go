package consensus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/metrics"
)

const (
	// accuracyFloor keeps every contributor's vote from vanishing entirely.
	accuracyFloor = 0.05

	// defaultNumericTolerance is the fraction of a category's range within
	// which a forecast counts as agreeing with the consensus value.
	defaultNumericTolerance = 0.1
)

// Aggregator folds arrived forecasts into one weighted consensus record.
// Each expert's vote in a category is weighted by their rolling accuracy in
// that category, so the ensemble drifts toward whoever has earned trust.
type Aggregator struct {
	tolerance float64
	now       func() time.Time
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		tolerance: defaultNumericTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes the consensus for one game from the arrived records.
// Roster members without a record are listed as excluded; an empty arrival
// set is Incomplete.
func (a *Aggregator) Aggregate(ctx context.Context, gameID string, roster *expert.Roster, records map[string]*model.PredictionRecord, degraded bool) (*model.ConsensusRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("consensus cancelled: %w", err)
	}

	contributors := make([]string, 0, len(records))
	var excluded []string
	for _, e := range roster.All() {
		if _, ok := records[e.ID]; ok {
			contributors = append(contributors, e.ID)
		} else {
			excluded = append(excluded, e.ID)
		}
	}
	sort.Strings(contributors)
	sort.Strings(excluded)

	if len(contributors) == 0 {
		return nil, &IncompleteError{GameID: gameID, Missing: excluded}
	}

	rec := &model.ConsensusRecord{
		GameID:       gameID,
		Categories:   make(map[model.Category]model.CategoryConsensus, len(model.Schema())),
		Contributors: contributors,
		Excluded:     excluded,
		Degraded:     degraded,
		ComputedAt:   a.now(),
	}

	for _, spec := range model.Schema() {
		switch spec.Kind {
		case model.Numeric:
			rec.Categories[spec.Name] = a.aggregateNumeric(spec, roster, contributors, records)
		default:
			rec.Categories[spec.Name] = a.aggregateCategorical(spec, roster, contributors, records)
		}
	}

	metrics.RecordConsensusComputed()
	metrics.RecordAgreementRatio(rec.Agreement())
	return rec, nil
}

// aggregateNumeric takes the accuracy-weighted mean; agreement is the weight
// share of experts landing within tolerance of that mean.
func (a *Aggregator) aggregateNumeric(spec model.CategorySpec, roster *expert.Roster, contributors []string, records map[string]*model.PredictionRecord) model.CategoryConsensus {
	var weightSum, valueSum float64
	for _, id := range contributors {
		pred, ok := records[id].Get(spec.Name)
		if !ok {
			continue
		}
		w := a.voteWeight(roster, id, spec.Name)
		weightSum += w
		valueSum += w * pred.Value
	}
	if weightSum == 0 {
		return model.CategoryConsensus{Category: spec.Name}
	}

	mean := valueSum / weightSum
	band := a.tolerance * spec.Range()

	var agreeing float64
	for _, id := range contributors {
		pred, ok := records[id].Get(spec.Name)
		if !ok {
			continue
		}
		if math.Abs(pred.Value-mean) <= band {
			agreeing += a.voteWeight(roster, id, spec.Name)
		}
	}

	return model.CategoryConsensus{
		Category:       spec.Name,
		Value:          mean,
		AgreementRatio: agreeing / weightSum,
	}
}

// aggregateCategorical runs an accuracy-weighted vote. Ties break toward the
// choice whose backers include the most self-assured forecast.
func (a *Aggregator) aggregateCategorical(spec model.CategorySpec, roster *expert.Roster, contributors []string, records map[string]*model.PredictionRecord) model.CategoryConsensus {
	votes := make(map[string]float64)
	topConfidence := make(map[string]float64)
	var weightSum float64

	for _, id := range contributors {
		pred, ok := records[id].Get(spec.Name)
		if !ok || pred.Choice == "" {
			continue
		}
		w := a.voteWeight(roster, id, spec.Name)
		votes[pred.Choice] += w
		weightSum += w
		if oc := records[id].OverallConfidence; oc > topConfidence[pred.Choice] {
			topConfidence[pred.Choice] = oc
		}
	}
	if weightSum == 0 {
		return model.CategoryConsensus{Category: spec.Name}
	}

	choices := make([]string, 0, len(votes))
	for c := range votes {
		choices = append(choices, c)
	}
	sort.Strings(choices)

	winner := choices[0]
	for _, c := range choices[1:] {
		switch {
		case votes[c] > votes[winner]:
			winner = c
		case votes[c] == votes[winner] && topConfidence[c] > topConfidence[winner]:
			winner = c
		}
	}

	return model.CategoryConsensus{
		Category:       spec.Name,
		Choice:         winner,
		AgreementRatio: votes[winner] / weightSum,
	}
}

func (a *Aggregator) voteWeight(roster *expert.Roster, expertID string, c model.Category) float64 {
	ex, err := roster.Get(expertID)
	if err != nil {
		return accuracyFloor
	}
	return math.Max(ex.Stats.CategoryAccuracy[c], accuracyFloor)
}
