package predict

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/model"
)

// forecast is the working state the bias pipeline shapes before it is frozen
// into a PredictionRecord. Scores are home/away expected finals; confidence
// is the running overall confidence.
type forecast struct {
	homeScore  float64
	awayScore  float64
	confidence float64

	// varianceAmp scales all stochastic spread applied to scoring categories.
	varianceAmp float64

	rng   *rand.Rand
	trace []string
}

func (f *forecast) margin() float64 { return f.homeScore - f.awayScore }
func (f *forecast) total() float64  { return f.homeScore + f.awayScore }

func (f *forecast) note(format string, args ...any) {
	f.trace = append(f.trace, fmt.Sprintf(format, args...))
}

// Bias is a named, composable adjustment driven by personality traits.
// Biases are deterministic functions of trait values and the shared rng.
type Bias func(e *expert.Expert, g model.GameContext, f *forecast)

// Trait thresholds and scales for the bias pipeline.
const (
	contrarianThreshold = 0.6
	contrarianScale     = 8.0 // max points of anti-market margin shift
	optimismScale       = 0.08
	momentumScale       = 4.0
	edgeScale           = 5.0
	injuryScale         = 2.5
	windDampPerMPH      = 0.15
	precipDamp          = 4.0
	baseVariance        = 6.0
	recencyStep         = 0.04
)

// analyticalBlend folds the efficiency and narrative edges into the margin,
// weighting efficiency metrics over narrative ones as the analytical trait rises.
func analyticalBlend(e *expert.Expert, g model.GameContext, f *forecast) {
	a := e.Personality.Analytical
	edge := a*g.EfficiencyEdge + (1-a)*g.NarrativeEdge
	f.homeScore += edge * edgeScale / 2
	f.awayScore -= edge * edgeScale / 2
	f.confidence += a * 0.15
	if edge != 0 {
		side := "home"
		if edge < 0 {
			side = "away"
		}
		f.note("blended edge %.2f favors %s (analytical %.2f)", edge, side, a)
	}
}

// momentumLean rewards recent form in proportion to the momentum trait.
func momentumLean(e *expert.Expert, g model.GameContext, f *forecast) {
	m := e.Personality.Momentum
	lean := m * (g.HomeRecentForm - g.AwayRecentForm) * momentumScale / 2
	f.homeScore += lean
	f.awayScore -= lean
	if lean != 0 {
		f.note("momentum lean %+.1f points (trait %.2f)", lean*2, m)
	}
}

// optimismLean scales the expected total up or down around the market number.
func optimismLean(e *expert.Expert, _ model.GameContext, f *forecast) {
	o := e.Personality.Optimism
	factor := 1 + (o-0.5)*optimismScale
	f.homeScore *= factor
	f.awayScore *= factor
	f.note("optimism %.2f scales total by %.3f", o, factor)
}

// injuryDiscount deducts expected points for injured sides; analytical
// experts weigh reports more heavily than narrative-driven ones.
func injuryDiscount(e *expert.Expert, g model.GameContext, f *forecast) {
	if len(g.Injuries) == 0 {
		return
	}
	weight := 0.5 + e.Personality.Analytical/2
	var home, away float64
	for _, inj := range g.Injuries {
		if inj.Team == model.ChoiceHome {
			home += inj.Severity
		} else {
			away += inj.Severity
		}
	}
	f.homeScore -= home * injuryScale * weight
	f.awayScore -= away * injuryScale * weight
	f.note("injury discount home %.1f away %.1f", home*injuryScale*weight, away*injuryScale*weight)
}

// weatherDamp lowers scoring expectations in wind and rain, outdoors only.
func weatherDamp(_ *expert.Expert, g model.GameContext, f *forecast) {
	if g.Weather.Dome {
		return
	}
	damp := g.Weather.WindMPH*windDampPerMPH + g.Weather.PrecipChance*precipDamp
	if damp <= 0 {
		return
	}
	f.homeScore -= damp / 2
	f.awayScore -= damp / 2
	f.note("weather damps total by %.1f points", damp)
}

// contrarianShift moves the forecast away from the market-implied lean once
// the contrarian trait clears its threshold, proportional to trait magnitude.
func contrarianShift(e *expert.Expert, g model.GameContext, f *forecast) {
	c := e.Personality.Contrarian
	if c <= contrarianThreshold {
		return
	}
	fav := g.Favorite()
	if fav == "" {
		return
	}
	shift := (c - contrarianThreshold) / (1 - contrarianThreshold) * contrarianScale
	if fav == model.ChoiceHome {
		f.homeScore -= shift / 2
		f.awayScore += shift / 2
	} else {
		f.homeScore += shift / 2
		f.awayScore -= shift / 2
	}
	f.note("contrarian shift %.1f points against %s (trait %.2f)", shift, fav, c)
}

// varianceScale widens the stochastic spread of scoring outputs with the
// risk_taking trait and perturbs the finals accordingly.
func varianceScale(e *expert.Expert, _ model.GameContext, f *forecast) {
	r := e.Personality.RiskTaking
	f.varianceAmp = baseVariance * (0.5 + r)
	f.homeScore += f.rng.NormFloat64() * f.varianceAmp / 2
	f.awayScore += f.rng.NormFloat64() * f.varianceAmp / 2
	f.note("variance amplitude %.1f (risk_taking %.2f)", f.varianceAmp, r)
}

// valueConfidence raises conviction when the forecast diverges from the
// market, in proportion to the value_seeking trait; emotional experts bleed
// conviction into noise.
func valueConfidence(e *expert.Expert, g model.GameContext, f *forecast) {
	divergence := math.Abs(f.margin()-(-g.Spread)) / 14
	if divergence > 1 {
		divergence = 1
	}
	f.confidence += e.Personality.ValueSeeking * divergence * 0.1
	f.confidence -= e.Personality.Emotional * 0.05
	f.confidence += (f.rng.Float64() - 0.5) * e.Personality.Emotional * 0.1
}

// recencyWeight adjusts confidence from retrieved episodic memories: past
// similar contexts predicted correctly push it up, surprises push it down.
func recencyWeight(memories []model.EpisodicMemory) Bias {
	return func(_ *expert.Expert, _ model.GameContext, f *forecast) {
		if len(memories) == 0 {
			return
		}
		var adj float64
		for _, m := range memories {
			adj += (0.5 - m.SurpriseScore) * recencyStep
		}
		f.confidence += adj
		f.note("recalled %d similar games, confidence %+.3f", len(memories), adj)
	}
}

// defaultBiases is the standard pipeline, applied in order.
func defaultBiases(memories []model.EpisodicMemory) []Bias {
	return []Bias{
		analyticalBlend,
		momentumLean,
		optimismLean,
		injuryDiscount,
		weatherDamp,
		contrarianShift,
		varianceScale,
		valueConfidence,
		recencyWeight(memories),
	}
}
