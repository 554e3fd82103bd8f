package model

import (
	"math"
)

// winProbSlope converts a predicted margin into a win probability.
const (
	winProbSlope = 5.5
	winProbFloor = 0.02
)

// Derive recomputes every category that follows arithmetically from the
// predicted finals and quarter splits: margin, total, winner, picks, half
// winner, top quarter, upset alert and win probabilities. Confidences on
// existing predictions are preserved. Generation and belief revision both
// route through this so directional invariants hold by construction.
func Derive(rec *PredictionRecord, g GameContext, spreadThreshold float64) {
	home := rec.Categories[CategoryHomeScore].Value
	away := rec.Categories[CategoryAwayScore].Value
	margin := home - away

	setValue(rec, CategoryMargin, margin)
	setValue(rec, CategoryTotalPoints, home+away)

	winner := ChoiceAway
	if margin >= 0 {
		winner = ChoiceHome
	}
	setChoice(rec, CategoryWinner, winner)

	// Cover side from the predicted margin against the line; forced into
	// agreement with the winner once the line is meaningful.
	spreadPick := ChoiceAway
	if margin+g.Spread > 0 {
		spreadPick = ChoiceHome
	}
	if math.Abs(g.Spread) > spreadThreshold {
		spreadPick = winner
	}
	setChoice(rec, CategorySpreadPick, spreadPick)

	totalPick := ChoiceUnder
	if home+away > g.Total {
		totalPick = ChoiceOver
	}
	setChoice(rec, CategoryTotalPick, totalPick)

	fhHome := rec.Categories[CategoryHomeQ1].Value + rec.Categories[CategoryHomeQ2].Value
	fhAway := rec.Categories[CategoryAwayQ1].Value + rec.Categories[CategoryAwayQ2].Value
	half := ChoiceAway
	if fhHome >= fhAway {
		half = ChoiceHome
	}
	setChoice(rec, CategoryFirstHalfWinner, half)

	choices := []string{ChoiceQ1, ChoiceQ2, ChoiceQ3, ChoiceQ4}
	top, topPts := ChoiceQ1, -1.0
	for i := 0; i < 4; i++ {
		pts := rec.Categories[HomeQuarters[i]].Value + rec.Categories[AwayQuarters[i]].Value
		if pts > topPts {
			top, topPts = choices[i], pts
		}
	}
	setChoice(rec, CategoryTopQuarter, top)

	upset := ChoiceNo
	if fav := g.Favorite(); fav != "" && winner != fav {
		upset = ChoiceYes
	}
	setChoice(rec, CategoryUpsetAlert, upset)

	pHome := 1 / (1 + math.Exp(-margin/winProbSlope))
	pHome = math.Max(winProbFloor, math.Min(1-winProbFloor, pHome))
	rec.WinProbHome = pHome
	rec.WinProbAway = 1 - pHome
}

func setValue(rec *PredictionRecord, c Category, v float64) {
	p := rec.Categories[c]
	p.Category = c
	p.Value = v
	p.Choice = ""
	rec.Categories[c] = p
}

func setChoice(rec *PredictionRecord, c Category, choice string) {
	p := rec.Categories[c]
	p.Category = c
	p.Choice = choice
	p.Value = 0
	rec.Categories[c] = p
}
