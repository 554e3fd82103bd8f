// Package model contains domain models passed between ensemble components.
package model

// Category identifies one forecast dimension of a prediction record.
type Category string

// Kind distinguishes numeric categories from categorical ones.
type Kind int

const (
	// Numeric categories carry a float value scored by normalized distance.
	Numeric Kind = iota
	// Categorical categories carry a discrete choice scored 0/1.
	Categorical
)

// Numeric categories.
const (
	CategoryHomeScore     Category = "home_score"
	CategoryAwayScore     Category = "away_score"
	CategoryHomeQ1        Category = "home_q1"
	CategoryHomeQ2        Category = "home_q2"
	CategoryHomeQ3        Category = "home_q3"
	CategoryHomeQ4        Category = "home_q4"
	CategoryAwayQ1        Category = "away_q1"
	CategoryAwayQ2        Category = "away_q2"
	CategoryAwayQ3        Category = "away_q3"
	CategoryAwayQ4        Category = "away_q4"
	CategoryMargin        Category = "margin"
	CategoryTotalPoints   Category = "total_points"
	CategoryHomeTurnovers Category = "home_turnovers"
	CategoryAwayTurnovers Category = "away_turnovers"
	CategoryHomePassYards Category = "home_pass_yards"
	CategoryAwayPassYards Category = "away_pass_yards"
)

// Categorical categories.
const (
	CategoryWinner          Category = "winner"
	CategorySpreadPick      Category = "spread_pick"
	CategoryTotalPick       Category = "total_pick"
	CategoryFirstHalfWinner Category = "first_half_winner"
	CategoryTopQuarter      Category = "highest_scoring_quarter"
	CategoryUpsetAlert      Category = "upset_alert"
)

// Categorical choices.
const (
	ChoiceHome  = "home"
	ChoiceAway  = "away"
	ChoiceOver  = "over"
	ChoiceUnder = "under"
	ChoiceQ1    = "q1"
	ChoiceQ2    = "q2"
	ChoiceQ3    = "q3"
	ChoiceQ4    = "q4"
	ChoiceYes   = "yes"
	ChoiceNo    = "no"
)

// CategorySpec describes one category of the forecast schema: its kind, the
// value range used for error normalization, and the admissible choices for
// categorical categories.
type CategorySpec struct {
	Name    Category
	Kind    Kind
	Min     float64
	Max     float64
	Choices []string
}

// Range returns the width of the category's value range.
func (s CategorySpec) Range() float64 {
	return s.Max - s.Min
}

// schema is the category schema held as configuration data rather than
// scattered literals. Order is stable and used for deterministic iteration.
var schema = []CategorySpec{
	{Name: CategoryHomeScore, Kind: Numeric, Min: 0, Max: 60},
	{Name: CategoryAwayScore, Kind: Numeric, Min: 0, Max: 60},
	{Name: CategoryHomeQ1, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryHomeQ2, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryHomeQ3, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryHomeQ4, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryAwayQ1, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryAwayQ2, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryAwayQ3, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryAwayQ4, Kind: Numeric, Min: 0, Max: 28},
	{Name: CategoryMargin, Kind: Numeric, Min: -40, Max: 40},
	{Name: CategoryTotalPoints, Kind: Numeric, Min: 0, Max: 100},
	{Name: CategoryHomeTurnovers, Kind: Numeric, Min: 0, Max: 7},
	{Name: CategoryAwayTurnovers, Kind: Numeric, Min: 0, Max: 7},
	{Name: CategoryHomePassYards, Kind: Numeric, Min: 0, Max: 550},
	{Name: CategoryAwayPassYards, Kind: Numeric, Min: 0, Max: 550},
	{Name: CategoryWinner, Kind: Categorical, Choices: []string{ChoiceHome, ChoiceAway}},
	{Name: CategorySpreadPick, Kind: Categorical, Choices: []string{ChoiceHome, ChoiceAway}},
	{Name: CategoryTotalPick, Kind: Categorical, Choices: []string{ChoiceOver, ChoiceUnder}},
	{Name: CategoryFirstHalfWinner, Kind: Categorical, Choices: []string{ChoiceHome, ChoiceAway}},
	{Name: CategoryTopQuarter, Kind: Categorical, Choices: []string{ChoiceQ1, ChoiceQ2, ChoiceQ3, ChoiceQ4}},
	{Name: CategoryUpsetAlert, Kind: Categorical, Choices: []string{ChoiceYes, ChoiceNo}},
}

// specByName indexes the schema for O(1) lookups.
var specByName = func() map[Category]CategorySpec {
	m := make(map[Category]CategorySpec, len(schema))
	for _, s := range schema {
		m[s.Name] = s
	}
	return m
}()

// Schema returns the full category schema in stable order.
func Schema() []CategorySpec {
	out := make([]CategorySpec, len(schema))
	copy(out, schema)
	return out
}

// Spec returns the spec for a category. The second return reports whether the
// category is part of the schema.
func Spec(c Category) (CategorySpec, bool) {
	s, ok := specByName[c]
	return s, ok
}

// quarterCategories groups the per-team quarter categories used by sum checks.
var (
	HomeQuarters = []Category{CategoryHomeQ1, CategoryHomeQ2, CategoryHomeQ3, CategoryHomeQ4}
	AwayQuarters = []Category{CategoryAwayQ1, CategoryAwayQ2, CategoryAwayQ3, CategoryAwayQ4}
)
