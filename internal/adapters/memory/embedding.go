package memory

import (
	"github.com/okian/huddle/internal/domain/model"
)

// EmbeddingFunc turns a game context plus outcome delta into a fixed-dimension
// vector. The delta is the normalized gap between forecast and reality; pass
// zero when embedding a pre-game query.
type EmbeddingFunc func(g model.GameContext, o model.OutcomeRecord, delta float64) []float64

// DefaultEmbedding summarizes market shape, conditions and outcome delta into
// a 16-dimension vector. All features are scaled to roughly [-1, 1] so cosine
// distance is not dominated by any single axis.
func DefaultEmbedding(g model.GameContext, o model.OutcomeRecord, delta float64) []float64 {
	injHome, injAway := 0.0, 0.0
	for _, inj := range g.Injuries {
		if inj.Team == model.ChoiceHome {
			injHome += inj.Severity
		} else {
			injAway += inj.Severity
		}
	}

	dome := 0.0
	if g.Weather.Dome {
		dome = 1
	}

	margin := o.HomeScore - o.AwayScore
	total := o.HomeScore + o.AwayScore

	return []float64{
		g.Spread / 14,
		(g.Total - 44) / 20,
		g.EfficiencyEdge,
		g.NarrativeEdge,
		g.HomeRecentForm,
		g.AwayRecentForm,
		g.Weather.WindMPH / 30,
		(g.Weather.TempF - 55) / 40,
		g.Weather.PrecipChance,
		dome,
		clampUnit(injHome / 3),
		clampUnit(injAway / 3),
		float64(g.HomeRestDays-g.AwayRestDays) / 7,
		margin / 40,
		(total - 44) / 40,
		clampUnit(delta),
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
