// Package peer turns one expert's post-game lesson into nudges for others.
//
// No expert ever reads another's weights. The broker inspects committed
// learning summaries, selects high-conviction hits and misses, and publishes
// scalar lessons (category, polarity, magnitude) onto the queue. Consumers
// apply them through the learning engine, dampened and bounded.
package peer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/learning"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

const defaultConfidenceThreshold = 0.75

// Publisher is where selected lessons go.
type Publisher interface {
	Enqueue(ctx context.Context, e model.PeerLearningEvent) bool
}

// Broker selects and publishes peer learning events after outcomes land.
type Broker struct {
	threshold float64
	newID     func() string
	now       func() time.Time
	log       logger.Logger
}

// New creates a Broker with configuration options.
func New(opts ...Option) *Broker {
	b := &Broker{
		threshold: defaultConfidenceThreshold,
		newID:     uuid.NewString,
		now:       time.Now,
		log:       logger.Get().Named("peer-broker"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish inspects every expert's learning summary for one game and emits
// lessons for high-conviction categories: a confident hit becomes a
// reinforce lesson, a confident miss an invert lesson. Peers sharing the
// source's lean on the trait that drives the category receive the lesson as
// is; peers leaning the other way receive its inverse, since the same
// evidence pushes them in the opposite direction.
func (b *Broker) Publish(ctx context.Context, pub Publisher, roster *expert.Roster, records map[string]*model.PredictionRecord, summaries map[string]learning.UpdateSummary) int {
	emitted := 0
	for _, src := range roster.All() {
		rec := records[src.ID]
		sum, ok := summaries[src.ID]
		if rec == nil || !ok {
			continue
		}
		for _, spec := range model.Schema() {
			pred, ok := rec.Get(spec.Name)
			if !ok || pred.Confidence < b.threshold {
				continue
			}

			polarity := model.PolarityReinforce
			if !sum.CategoryCorrect[spec.Name] {
				polarity = model.PolarityInvert
			}
			magnitude := abs(sum.CategoryDeltas[spec.Name])
			if magnitude == 0 {
				continue
			}

			aligned, opposing := b.splitTargets(src, roster, spec.Name)
			lessons := []struct {
				targets  []string
				polarity model.Polarity
			}{
				{aligned, polarity},
				{opposing, flip(polarity)},
			}
			for _, l := range lessons {
				if len(l.targets) == 0 {
					continue
				}
				ev := model.PeerLearningEvent{
					ID:            b.newID(),
					GameID:        sum.GameID,
					SourceExpert:  src.ID,
					TargetExperts: l.targets,
					Category:      spec.Name,
					Polarity:      l.polarity,
					Magnitude:     magnitude,
					CreatedAt:     b.now(),
				}
				if !pub.Enqueue(ctx, ev) {
					b.log.Warn(ctx, "peer lesson dropped, queue full",
						logger.String("game_id", sum.GameID),
						logger.String("source", src.ID),
						logger.String("category", string(spec.Name)),
					)
					continue
				}
				emitted++
			}
		}
	}
	return emitted
}

// splitTargets partitions the roster around the source's lean on the trait
// driving the category, excluding the source itself.
func (b *Broker) splitTargets(src *expert.Expert, roster *expert.Roster, c model.Category) (aligned, opposing []string) {
	trait := traitFor(c)
	srcLean := src.Personality.Get(trait) >= 0.5

	for _, e := range roster.All() {
		if e.ID == src.ID {
			continue
		}
		if (e.Personality.Get(trait) >= 0.5) == srcLean {
			aligned = append(aligned, e.ID)
		} else {
			opposing = append(opposing, e.ID)
		}
	}
	return aligned, opposing
}

func flip(p model.Polarity) model.Polarity {
	if p == model.PolarityReinforce {
		return model.PolarityInvert
	}
	return model.PolarityReinforce
}

// traitFor maps a category onto the personality trait that most shapes it.
func traitFor(c model.Category) expert.Trait {
	switch c {
	case model.CategoryUpsetAlert:
		return expert.TraitContrarian
	case model.CategoryWinner, model.CategoryFirstHalfWinner:
		return expert.TraitOptimism
	case model.CategorySpreadPick:
		return expert.TraitValueSeeking
	case model.CategoryTotalPick, model.CategoryTotalPoints:
		return expert.TraitRiskTaking
	case model.CategoryTopQuarter:
		return expert.TraitMomentum
	case model.CategoryHomeTurnovers, model.CategoryAwayTurnovers:
		return expert.TraitEmotional
	default:
		return expert.TraitAnalytical
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
