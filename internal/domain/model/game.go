package model

import (
	"time"
)

// Weather captures pre-kickoff conditions relevant to scoring.
type Weather struct {
	TempF        float64 `json:"temp_f"`
	WindMPH      float64 `json:"wind_mph"`
	PrecipChance float64 `json:"precip_chance"`
	Dome         bool    `json:"dome"`
}

// Injury describes a single pre-game injury report entry.
type Injury struct {
	Team     string  `json:"team"`     // "home" or "away"
	Player   string  `json:"player"`
	Severity float64 `json:"severity"` // 0 = probable, 1 = out
}

// GameContext holds the immutable pre-kickoff facts for one game.
// Spread follows the home-line convention: negative when home is favored.
type GameContext struct {
	GameID   string    `json:"game_id"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Kickoff  time.Time `json:"kickoff"`

	// Market numbers. HasMarket distinguishes a true pick'em (spread 0)
	// from an absent line.
	Spread    float64 `json:"spread"`
	Total     float64 `json:"total"`
	HasMarket bool    `json:"has_market"`

	Weather      Weather  `json:"weather"`
	Injuries     []Injury `json:"injuries"`
	HomeRestDays int      `json:"home_rest_days"`
	AwayRestDays int      `json:"away_rest_days"`

	// EfficiencyEdge and NarrativeEdge summarize home-minus-away advantages
	// from efficiency metrics and storyline/momentum signals respectively,
	// both roughly in [-1, 1].
	EfficiencyEdge float64 `json:"efficiency_edge"`
	NarrativeEdge  float64 `json:"narrative_edge"`

	// HomeRecentForm and AwayRecentForm are momentum signals in [-1, 1].
	HomeRecentForm float64 `json:"home_recent_form"`
	AwayRecentForm float64 `json:"away_recent_form"`
}

// MissingFields reports which mandatory fields are absent. An empty result
// means the context is complete enough for generation.
func (g GameContext) MissingFields() []string {
	var missing []string
	if g.GameID == "" {
		missing = append(missing, "game_id")
	}
	if g.HomeTeam == "" {
		missing = append(missing, "home_team")
	}
	if g.AwayTeam == "" {
		missing = append(missing, "away_team")
	}
	if !g.HasMarket {
		missing = append(missing, "spread")
	}
	if g.Total <= 0 {
		missing = append(missing, "total")
	}
	if g.Kickoff.IsZero() {
		missing = append(missing, "kickoff")
	}
	return missing
}

// Favorite returns which side the market favors, or "" for a pick'em.
func (g GameContext) Favorite() string {
	switch {
	case g.Spread < 0:
		return ChoiceHome
	case g.Spread > 0:
		return ChoiceAway
	default:
		return ""
	}
}

// OutcomeRecord holds realized results for a game, supplied externally once final.
type OutcomeRecord struct {
	GameID       string     `json:"game_id"`
	HomeScore    float64    `json:"home_score"`
	AwayScore    float64    `json:"away_score"`
	HomeQuarters [4]float64 `json:"home_quarters"`
	AwayQuarters [4]float64 `json:"away_quarters"`

	HomeTurnovers float64 `json:"home_turnovers"`
	AwayTurnovers float64 `json:"away_turnovers"`
	HomePassYards float64 `json:"home_pass_yards"`
	AwayPassYards float64 `json:"away_pass_yards"`

	Final       bool      `json:"final"`
	CompletedAt time.Time `json:"completed_at"`
}

// Winner returns the realized winner side.
func (o OutcomeRecord) Winner() string {
	if o.HomeScore >= o.AwayScore {
		return ChoiceHome
	}
	return ChoiceAway
}

// GameState tracks a game through its ensemble lifecycle.
type GameState string

const (
	GameScheduled        GameState = "scheduled"
	PredictionsCollected GameState = "predictions_collected"
	ConsensusComputed    GameState = "consensus_computed"
	OutcomeAwaited       GameState = "outcome_awaited"
	OutcomeApplied       GameState = "outcome_applied"
	GameArchived         GameState = "archived"
)

// transitions enumerates the legal state machine edges.
var transitions = map[GameState][]GameState{
	GameScheduled:        {PredictionsCollected},
	PredictionsCollected: {ConsensusComputed},
	ConsensusComputed:    {OutcomeAwaited},
	OutcomeAwaited:       {OutcomeApplied},
	OutcomeApplied:       {GameArchived},
	GameArchived:         {},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s GameState) CanTransition(next GameState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
