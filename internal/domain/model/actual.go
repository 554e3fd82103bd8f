package model

// ActualValues resolves realized results into the category schema so that
// learning and scoring can compare predictions against outcomes uniformly.
// Market-relative categories (spread_pick, total_pick, upset_alert) need the
// GameContext the record was generated against.
func ActualValues(g GameContext, o OutcomeRecord) map[Category]Prediction {
	margin := o.HomeScore - o.AwayScore

	actual := map[Category]Prediction{
		CategoryHomeScore:     {Category: CategoryHomeScore, Value: o.HomeScore},
		CategoryAwayScore:     {Category: CategoryAwayScore, Value: o.AwayScore},
		CategoryMargin:        {Category: CategoryMargin, Value: margin},
		CategoryTotalPoints:   {Category: CategoryTotalPoints, Value: o.HomeScore + o.AwayScore},
		CategoryHomeTurnovers: {Category: CategoryHomeTurnovers, Value: o.HomeTurnovers},
		CategoryAwayTurnovers: {Category: CategoryAwayTurnovers, Value: o.AwayTurnovers},
		CategoryHomePassYards: {Category: CategoryHomePassYards, Value: o.HomePassYards},
		CategoryAwayPassYards: {Category: CategoryAwayPassYards, Value: o.AwayPassYards},
	}

	for i, c := range HomeQuarters {
		actual[c] = Prediction{Category: c, Value: o.HomeQuarters[i]}
	}
	for i, c := range AwayQuarters {
		actual[c] = Prediction{Category: c, Value: o.AwayQuarters[i]}
	}

	actual[CategoryWinner] = Prediction{Category: CategoryWinner, Choice: o.Winner()}

	// Home covers when the margin beats the line (home-line convention:
	// spread is negative for home favorites).
	spreadPick := ChoiceAway
	if margin+g.Spread > 0 {
		spreadPick = ChoiceHome
	}
	actual[CategorySpreadPick] = Prediction{Category: CategorySpreadPick, Choice: spreadPick}

	totalPick := ChoiceUnder
	if o.HomeScore+o.AwayScore > g.Total {
		totalPick = ChoiceOver
	}
	actual[CategoryTotalPick] = Prediction{Category: CategoryTotalPick, Choice: totalPick}

	fhHome := o.HomeQuarters[0] + o.HomeQuarters[1]
	fhAway := o.AwayQuarters[0] + o.AwayQuarters[1]
	fhWinner := ChoiceAway
	if fhHome >= fhAway {
		fhWinner = ChoiceHome
	}
	actual[CategoryFirstHalfWinner] = Prediction{Category: CategoryFirstHalfWinner, Choice: fhWinner}

	actual[CategoryTopQuarter] = Prediction{Category: CategoryTopQuarter, Choice: topQuarter(o)}

	upset := ChoiceNo
	if fav := g.Favorite(); fav != "" && o.Winner() != fav {
		upset = ChoiceYes
	}
	actual[CategoryUpsetAlert] = Prediction{Category: CategoryUpsetAlert, Choice: upset}

	return actual
}

func topQuarter(o OutcomeRecord) string {
	choices := []string{ChoiceQ1, ChoiceQ2, ChoiceQ3, ChoiceQ4}
	best, bestPts := ChoiceQ1, -1.0
	for i := 0; i < 4; i++ {
		pts := o.HomeQuarters[i] + o.AwayQuarters[i]
		if pts > bestPts {
			best, bestPts = choices[i], pts
		}
	}
	return best
}
