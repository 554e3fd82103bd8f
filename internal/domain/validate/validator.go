// Package validate enforces cross-field arithmetic and logical agreement
// within a single prediction record. Inconsistent records are never persisted.
package validate

import (
	"fmt"
	"math"

	"github.com/okian/huddle/internal/domain/model"
)

// sumEpsilon tolerates float accumulation noise in quarter sums and
// probability totals.
const sumEpsilon = 1e-6

// Violation describes one failed constraint.
type Violation struct {
	Code     string         `json:"code"`
	Category model.Category `json:"category,omitempty"`
	Detail   string         `json:"detail"`
}

// Violation codes.
const (
	CodeConfidenceRange  = "confidence_out_of_range"
	CodeValueRange       = "value_out_of_range"
	CodeUnknownChoice    = "unknown_choice"
	CodeMissingCategory  = "missing_category"
	CodeQuarterSum       = "quarter_sum_mismatch"
	CodeMarginMismatch   = "margin_mismatch"
	CodeTotalMismatch    = "total_mismatch"
	CodeWinnerSign       = "winner_sign_disagreement"
	CodeSpreadDirection  = "spread_direction_disagreement"
	CodeProbabilitySum   = "probability_sum_mismatch"
	CodeHalfWinner       = "half_winner_mismatch"
)

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithSpreadAgreementThreshold sets the absolute line above which the winner
// pick must agree with the spread pick.
func WithSpreadAgreementThreshold(t float64) Option {
	return func(v *Validator) {
		if t >= 0 {
			v.spreadThreshold = t
		}
	}
}

// Validator checks prediction records against the category schema and the
// cross-field invariants.
type Validator struct {
	spreadThreshold float64
}

// New creates a Validator with configuration options.
func New(opts ...Option) *Validator {
	v := &Validator{
		spreadThreshold: 3.0,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check returns all violated constraints for rec generated against g. A nil
// error means the record is internally consistent.
func (v *Validator) Check(g model.GameContext, rec *model.PredictionRecord) error {
	var violations []Violation

	violations = append(violations, v.checkSchema(rec)...)
	violations = append(violations, v.checkSums(rec)...)
	violations = append(violations, v.checkDirections(g, rec)...)
	violations = append(violations, v.checkProbabilities(rec)...)

	if len(violations) == 0 {
		return nil
	}
	return &ViolationsError{
		GameID:     rec.GameID,
		ExpertID:   rec.ExpertID,
		Violations: violations,
	}
}

// checkSchema verifies every schema category is present with an in-range
// value or admissible choice, and all confidences stay in [0,1].
func (v *Validator) checkSchema(rec *model.PredictionRecord) []Violation {
	var out []Violation

	if rec.OverallConfidence < 0 || rec.OverallConfidence > 1 {
		out = append(out, Violation{
			Code:   CodeConfidenceRange,
			Detail: fmt.Sprintf("overall_confidence = %v", rec.OverallConfidence),
		})
	}

	for _, spec := range model.Schema() {
		p, ok := rec.Get(spec.Name)
		if !ok {
			out = append(out, Violation{
				Code:     CodeMissingCategory,
				Category: spec.Name,
				Detail:   "category absent from record",
			})
			continue
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			out = append(out, Violation{
				Code:     CodeConfidenceRange,
				Category: spec.Name,
				Detail:   fmt.Sprintf("confidence = %v", p.Confidence),
			})
		}
		switch spec.Kind {
		case model.Numeric:
			if p.Value < spec.Min || p.Value > spec.Max {
				out = append(out, Violation{
					Code:     CodeValueRange,
					Category: spec.Name,
					Detail:   fmt.Sprintf("value %v outside [%v,%v]", p.Value, spec.Min, spec.Max),
				})
			}
		case model.Categorical:
			if !contains(spec.Choices, p.Choice) {
				out = append(out, Violation{
					Code:     CodeUnknownChoice,
					Category: spec.Name,
					Detail:   fmt.Sprintf("choice %q not in %v", p.Choice, spec.Choices),
				})
			}
		}
	}
	return out
}

// checkSums verifies quarter sums against finals and derived totals.
func (v *Validator) checkSums(rec *model.PredictionRecord) []Violation {
	var out []Violation

	homeFinal := rec.Categories[model.CategoryHomeScore].Value
	awayFinal := rec.Categories[model.CategoryAwayScore].Value

	if diff := math.Abs(sum(rec, model.HomeQuarters) - homeFinal); diff > sumEpsilon {
		out = append(out, Violation{
			Code:     CodeQuarterSum,
			Category: model.CategoryHomeScore,
			Detail:   fmt.Sprintf("home quarters sum to %v, final is %v", sum(rec, model.HomeQuarters), homeFinal),
		})
	}
	if diff := math.Abs(sum(rec, model.AwayQuarters) - awayFinal); diff > sumEpsilon {
		out = append(out, Violation{
			Code:     CodeQuarterSum,
			Category: model.CategoryAwayScore,
			Detail:   fmt.Sprintf("away quarters sum to %v, final is %v", sum(rec, model.AwayQuarters), awayFinal),
		})
	}

	if diff := math.Abs(rec.Categories[model.CategoryMargin].Value - (homeFinal - awayFinal)); diff > sumEpsilon {
		out = append(out, Violation{
			Code:     CodeMarginMismatch,
			Category: model.CategoryMargin,
			Detail:   fmt.Sprintf("margin %v does not equal score differential %v", rec.Categories[model.CategoryMargin].Value, homeFinal-awayFinal),
		})
	}
	if diff := math.Abs(rec.Categories[model.CategoryTotalPoints].Value - (homeFinal + awayFinal)); diff > sumEpsilon {
		out = append(out, Violation{
			Code:     CodeTotalMismatch,
			Category: model.CategoryTotalPoints,
			Detail:   fmt.Sprintf("total_points %v does not equal score sum %v", rec.Categories[model.CategoryTotalPoints].Value, homeFinal+awayFinal),
		})
	}

	// First-half winner must follow the predicted first-half quarters.
	fhHome := rec.Categories[model.CategoryHomeQ1].Value + rec.Categories[model.CategoryHomeQ2].Value
	fhAway := rec.Categories[model.CategoryAwayQ1].Value + rec.Categories[model.CategoryAwayQ2].Value
	wantHalf := model.ChoiceAway
	if fhHome >= fhAway {
		wantHalf = model.ChoiceHome
	}
	if got := rec.Categories[model.CategoryFirstHalfWinner].Choice; got != wantHalf {
		out = append(out, Violation{
			Code:     CodeHalfWinner,
			Category: model.CategoryFirstHalfWinner,
			Detail:   fmt.Sprintf("first_half_winner %q disagrees with predicted half scores %v-%v", got, fhHome, fhAway),
		})
	}
	return out
}

// checkDirections verifies the winner pick agrees with the predicted score
// differential, and with the spread pick when the line is meaningful.
func (v *Validator) checkDirections(g model.GameContext, rec *model.PredictionRecord) []Violation {
	var out []Violation

	margin := rec.Categories[model.CategoryHomeScore].Value - rec.Categories[model.CategoryAwayScore].Value
	winner := rec.Categories[model.CategoryWinner].Choice

	wantWinner := model.ChoiceAway
	if margin >= 0 {
		wantWinner = model.ChoiceHome
	}
	if winner != wantWinner {
		out = append(out, Violation{
			Code:     CodeWinnerSign,
			Category: model.CategoryWinner,
			Detail:   fmt.Sprintf("winner %q disagrees with predicted margin %v", winner, margin),
		})
	}

	if math.Abs(g.Spread) > v.spreadThreshold {
		if pick := rec.Categories[model.CategorySpreadPick].Choice; pick != winner {
			out = append(out, Violation{
				Code:     CodeSpreadDirection,
				Category: model.CategorySpreadPick,
				Detail:   fmt.Sprintf("spread_pick %q disagrees with winner %q at line %v", pick, winner, g.Spread),
			})
		}
	}
	return out
}

// checkProbabilities verifies mutually exclusive probabilities sum to 1.
func (v *Validator) checkProbabilities(rec *model.PredictionRecord) []Violation {
	var out []Violation
	for _, p := range []float64{rec.WinProbHome, rec.WinProbAway} {
		if p < 0 || p > 1 {
			out = append(out, Violation{
				Code:   CodeProbabilitySum,
				Detail: fmt.Sprintf("win probability %v outside [0,1]", p),
			})
			return out
		}
	}
	if diff := math.Abs(rec.WinProbHome + rec.WinProbAway - 1); diff > sumEpsilon {
		out = append(out, Violation{
			Code:   CodeProbabilitySum,
			Detail: fmt.Sprintf("win probabilities sum to %v", rec.WinProbHome+rec.WinProbAway),
		})
	}
	return out
}

func sum(rec *model.PredictionRecord, cats []model.Category) float64 {
	var total float64
	for _, c := range cats {
		total += rec.Categories[c].Value
	}
	return total
}

func contains(choices []string, choice string) bool {
	for _, c := range choices {
		if c == choice {
			return true
		}
	}
	return false
}
