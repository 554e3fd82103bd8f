package peer_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/learning"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/peer"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// capturePublisher records enqueued events; full simulates a saturated queue.
type capturePublisher struct {
	events []model.PeerLearningEvent
	full   bool
}

func (p *capturePublisher) Enqueue(ctx context.Context, e model.PeerLearningEvent) bool {
	if p.full {
		return false
	}
	p.events = append(p.events, e)
	return true
}

func optimist(id string, optimism float64) *expert.Expert {
	ex, err := expert.New(id, id, expert.PersonalityVector{
		RiskTaking: 0.5, Optimism: optimism, Analytical: 0.5,
		Contrarian: 0.5, Momentum: 0.5, ValueSeeking: 0.5, Emotional: 0.5,
	}, 0.2)
	if err != nil {
		panic(err)
	}
	return ex
}

func winnerOnly(expertID string, confidence float64) *model.PredictionRecord {
	return &model.PredictionRecord{
		ID:       expertID + "-v1",
		GameID:   "g1",
		ExpertID: expertID,
		Version:  1,
		Categories: map[model.Category]model.Prediction{
			model.CategoryWinner: {Category: model.CategoryWinner, Choice: model.ChoiceHome, Confidence: confidence},
		},
		OverallConfidence: confidence,
	}
}

func summaryFor(expertID string, correct bool, delta float64) learning.UpdateSummary {
	return learning.UpdateSummary{
		ExpertID:        expertID,
		GameID:          "g1",
		CategoryDeltas:  map[model.Category]float64{model.CategoryWinner: delta},
		CategoryCorrect: map[model.Category]bool{model.CategoryWinner: correct},
	}
}

func TestBroker_Publish(t *testing.T) {
	Convey("Given a source with one like-minded peer and one opposite", t, func() {
		// Winner lessons route on the optimism trait.
		src := optimist("homer", 0.9)
		ally := optimist("believer", 0.8)
		foe := optimist("skeptic", 0.2)
		roster, err := expert.NewRoster([]*expert.Expert{src, ally, foe})
		So(err, ShouldBeNil)

		broker := peer.New()
		ctx := context.Background()

		Convey("When a confident call lands", func() {
			pub := &capturePublisher{}
			records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.9)}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0.04)}

			emitted := broker.Publish(ctx, pub, roster, records, summaries)

			Convey("Then the like-minded peer is reinforced and the opposite inverted", func() {
				So(emitted, ShouldEqual, 2)
				So(len(pub.events), ShouldEqual, 2)

				ev := pub.events[0]
				So(ev.SourceExpert, ShouldEqual, "homer")
				So(ev.TargetExperts, ShouldResemble, []string{"believer"})
				So(ev.Category, ShouldEqual, model.CategoryWinner)
				So(ev.Polarity, ShouldEqual, model.PolarityReinforce)
				So(ev.Magnitude, ShouldEqual, 0.04)
				So(ev.ID, ShouldNotBeEmpty)

				counter := pub.events[1]
				So(counter.SourceExpert, ShouldEqual, "homer")
				So(counter.TargetExperts, ShouldResemble, []string{"skeptic"})
				So(counter.Polarity, ShouldEqual, model.PolarityInvert)
				So(counter.Magnitude, ShouldEqual, 0.04)
				So(counter.ID, ShouldNotEqual, ev.ID)
			})
		})

		Convey("When a confident call misses", func() {
			pub := &capturePublisher{}
			records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.85)}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", false, -0.06)}

			emitted := broker.Publish(ctx, pub, roster, records, summaries)

			Convey("Then the lesson inverts for allies and reinforces the opposition", func() {
				So(emitted, ShouldEqual, 2)
				So(pub.events[0].TargetExperts, ShouldResemble, []string{"believer"})
				So(pub.events[0].Polarity, ShouldEqual, model.PolarityInvert)
				So(pub.events[0].Magnitude, ShouldEqual, 0.06)

				So(pub.events[1].TargetExperts, ShouldResemble, []string{"skeptic"})
				So(pub.events[1].Polarity, ShouldEqual, model.PolarityReinforce)
				So(pub.events[1].Magnitude, ShouldEqual, 0.06)
			})
		})

		Convey("When the call was not confident enough", func() {
			pub := &capturePublisher{}
			records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.5)}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0.04)}

			emitted := broker.Publish(ctx, pub, roster, records, summaries)

			Convey("Then nothing is published", func() {
				So(emitted, ShouldEqual, 0)
				So(pub.events, ShouldBeEmpty)
			})
		})

		Convey("When the learning delta was zero", func() {
			pub := &capturePublisher{}
			records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.9)}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0)}

			emitted := broker.Publish(ctx, pub, roster, records, summaries)

			Convey("Then there is no lesson to share", func() {
				So(emitted, ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			pub := &capturePublisher{full: true}
			records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.9)}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0.04)}

			emitted := broker.Publish(ctx, pub, roster, records, summaries)

			Convey("Then the lesson is dropped, not retried", func() {
				So(emitted, ShouldEqual, 0)
			})
		})

		Convey("When an expert has a summary but no record", func() {
			pub := &capturePublisher{}
			summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0.04)}

			emitted := broker.Publish(ctx, pub, roster, nil, summaries)

			Convey("Then it is skipped", func() {
				So(emitted, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a raised confidence threshold", t, func() {
		src := optimist("homer", 0.9)
		ally := optimist("believer", 0.8)
		roster, err := expert.NewRoster([]*expert.Expert{src, ally})
		So(err, ShouldBeNil)

		broker := peer.New(peer.WithConfidenceThreshold(0.95))
		pub := &capturePublisher{}

		records := map[string]*model.PredictionRecord{"homer": winnerOnly("homer", 0.9)}
		summaries := map[string]learning.UpdateSummary{"homer": summaryFor("homer", true, 0.04)}

		Convey("When publishing below the new floor", func() {
			emitted := broker.Publish(context.Background(), pub, roster, records, summaries)

			Convey("Then nothing passes", func() {
				So(emitted, ShouldEqual, 0)
			})
		})
	})
}
