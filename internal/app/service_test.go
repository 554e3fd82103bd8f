package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/domain/consensus"
	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/learning"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/predict"
	"github.com/okian/huddle/internal/domain/revision"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testGame(id string) model.GameContext {
	return model.GameContext{
		GameID:    id,
		HomeTeam:  "Hawks",
		AwayTeam:  "Bears",
		Kickoff:   time.Now().Add(6 * time.Hour),
		Spread:    -3.5,
		Total:     44.5,
		HasMarket: true,
		Weather:   model.Weather{Dome: true},
	}
}

func finalOutcome(id string) model.OutcomeRecord {
	return model.OutcomeRecord{
		GameID:       id,
		HomeScore:    27,
		AwayScore:    17,
		HomeQuarters: [4]float64{7, 10, 3, 7},
		AwayQuarters: [4]float64{3, 7, 0, 7},
		Final:        true,
		CompletedAt:  time.Now(),
	}
}

func startedService(t *testing.T) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithConsensusTimeout(200 * time.Millisecond),
		service.WithWorkerCount(2),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_GameLifecycle(t *testing.T) {
	Convey("Given a started service with the default roster", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		g := testGame("lifecycle-1")

		Convey("When the game runs its full lifecycle", func() {
			So(svc.RegisterGame(ctx, g), ShouldBeNil)

			_, state, err := svc.Game(ctx, g.GameID)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, model.GameScheduled)

			records, err := svc.GeneratePredictions(ctx, g.GameID)
			So(err, ShouldBeNil)

			Convey("Then every expert contributes a version-1 record", func() {
				So(len(records), ShouldEqual, expert.DefaultRoster().Size())
				for _, rec := range records {
					So(rec.Version, ShouldEqual, 1)
					So(rec.GameID, ShouldEqual, g.GameID)
				}
				_, state, _ := svc.Game(ctx, g.GameID)
				So(state, ShouldEqual, model.PredictionsCollected)
			})

			Convey("Then consensus freezes complete and is cached", func() {
				rec, err := svc.GetConsensus(ctx, g.GameID)
				So(err, ShouldBeNil)
				So(rec.Degraded, ShouldBeFalse)
				So(len(rec.Contributors), ShouldEqual, len(records))
				So(rec.Agreement(), ShouldBeBetweenOrEqual, 0, 1)

				_, state, _ := svc.Game(ctx, g.GameID)
				So(state, ShouldEqual, model.OutcomeAwaited)

				again, err := svc.GetConsensus(ctx, g.GameID)
				So(err, ShouldBeNil)
				So(again.ComputedAt.Equal(rec.ComputedAt), ShouldBeTrue)
			})

			Convey("Then applying the outcome settles and archives the game", func() {
				_, err := svc.GetConsensus(ctx, g.GameID)
				So(err, ShouldBeNil)

				So(svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID)), ShouldBeNil)

				_, state, _ := svc.Game(ctx, g.GameID)
				So(state, ShouldEqual, model.GameArchived)

				Convey("And a second outcome is rejected without side effects", func() {
					err := svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID))
					So(errors.Is(err, learning.ErrDuplicateOutcome), ShouldBeTrue)
				})
			})

			Convey("Then the outcome can land straight after collection", func() {
				// Consensus must freeze implicitly on the way.
				So(svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID)), ShouldBeNil)

				rec, err := svc.GetConsensus(ctx, g.GameID)
				So(err, ShouldBeNil)
				So(rec.GameID, ShouldEqual, g.GameID)
			})
		})
	})
}

func TestService_Revisions(t *testing.T) {
	Convey("Given a game with collected predictions", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		g := testGame("revise-1")

		So(svc.RegisterGame(ctx, g), ShouldBeNil)
		records, err := svc.GeneratePredictions(ctx, g.GameID)
		So(err, ShouldBeNil)

		var expertID string
		for id := range records {
			expertID = id
			break
		}
		original := records[expertID]
		homeScore, _ := original.Get(model.CategoryHomeScore)

		Convey("When an expert revises before kickoff", func() {
			revised, err := svc.Revise(ctx, g.GameID, expertID, "injury news", []revision.Change{
				{Category: model.CategoryHomeScore, Value: homeScore.Value + 4, Confidence: 0.7},
			})

			Convey("Then the chain grows and the event is recorded", func() {
				So(err, ShouldBeNil)
				So(revised.Version, ShouldEqual, original.Version+1)
				So(revised.PrevID, ShouldEqual, original.ID)

				chain, err := svc.PredictionChain(ctx, g.GameID, expertID)
				So(err, ShouldBeNil)
				So(len(chain), ShouldEqual, 2)
				So(chain[0].ID, ShouldEqual, original.ID)

				events, err := svc.Revisions(ctx, g.GameID)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(events[0].ExpertID, ShouldEqual, expertID)
				So(events[0].Trigger, ShouldEqual, "injury news")
			})
		})

		Convey("When revising after consensus is frozen", func() {
			_, err := svc.GetConsensus(ctx, g.GameID)
			So(err, ShouldBeNil)

			_, err = svc.Revise(ctx, g.GameID, expertID, "line moved", []revision.Change{
				{Category: model.CategoryHomeScore, Value: homeScore.Value + 2},
			})

			Convey("Then the frozen consensus cannot diverge from the chain", func() {
				So(errors.Is(err, revision.ErrStaleWindow), ShouldBeTrue)
			})
		})

		Convey("When revising after the game settled", func() {
			_, err := svc.GetConsensus(ctx, g.GameID)
			So(err, ShouldBeNil)
			So(svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID)), ShouldBeNil)

			_, err = svc.Revise(ctx, g.GameID, expertID, "too late", []revision.Change{
				{Category: model.CategoryHomeScore, Value: homeScore.Value + 1},
			})

			Convey("Then the revision window is closed", func() {
				So(errors.Is(err, revision.ErrStaleWindow), ShouldBeTrue)
			})
		})
	})
}

func TestService_Registration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("When registering the same game twice", func() {
			g := testGame("dup-1")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)
			err := svc.RegisterGame(ctx, g)

			Convey("Then the second registration is rejected", func() {
				So(errors.Is(err, service.ErrGameExists), ShouldBeTrue)
			})
		})

		Convey("When registering an incomplete context", func() {
			g := testGame("incomplete-1")
			g.HasMarket = false
			err := svc.RegisterGame(ctx, g)

			Convey("Then the missing fields are reported up front", func() {
				So(errors.Is(err, predict.ErrMissingContext), ShouldBeTrue)
				var mce *predict.MissingContextError
				So(errors.As(err, &mce), ShouldBeTrue)
				So(mce.Fields, ShouldContain, "spread")
			})
		})

		Convey("When operating on an unknown game", func() {
			_, err := svc.GeneratePredictions(ctx, "nope")
			So(errors.Is(err, service.ErrGameNotFound), ShouldBeTrue)

			_, err = svc.GetConsensus(ctx, "nope")
			So(errors.Is(err, service.ErrGameNotFound), ShouldBeTrue)

			err = svc.ApplyOutcome(ctx, "nope", finalOutcome("nope"))
			So(errors.Is(err, service.ErrGameNotFound), ShouldBeTrue)
		})

		Convey("When collecting predictions twice for one game", func() {
			g := testGame("twice-1")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)
			_, err := svc.GeneratePredictions(ctx, g.GameID)
			So(err, ShouldBeNil)

			_, err = svc.GeneratePredictions(ctx, g.GameID)

			Convey("Then the second collection is an illegal transition", func() {
				So(errors.Is(err, service.ErrBadTransition), ShouldBeTrue)
			})
		})

		Convey("When applying an outcome before any predictions", func() {
			g := testGame("early-1")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)

			err := svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID))

			Convey("Then it is rejected without persisting anything", func() {
				So(errors.Is(err, service.ErrBadTransition), ShouldBeTrue)
			})

			Convey("And the game still settles normally afterwards", func() {
				_, err := svc.GeneratePredictions(ctx, g.GameID)
				So(err, ShouldBeNil)
				So(svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID)), ShouldBeNil)

				_, state, _ := svc.Game(ctx, g.GameID)
				So(state, ShouldEqual, model.GameArchived)
			})
		})

		Convey("When revising before any predictions", func() {
			g := testGame("early-2")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)

			_, err := svc.Revise(ctx, g.GameID, "quant", "early news", []revision.Change{
				{Category: model.CategoryHomeScore, Value: 24},
			})

			Convey("Then there is no chain to extend yet", func() {
				So(errors.Is(err, service.ErrBadTransition), ShouldBeTrue)
			})
		})

		Convey("When applying a non-final outcome", func() {
			g := testGame("notfinal-1")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)
			o := finalOutcome(g.GameID)
			o.Final = false

			err := svc.ApplyOutcome(ctx, g.GameID, o)

			Convey("Then it is rejected before any learning happens", func() {
				So(errors.Is(err, learning.ErrOutcomeNotFinal), ShouldBeTrue)
			})
		})
	})
}

func TestService_DegradedConsensus(t *testing.T) {
	Convey("Given a quorum larger than the arrivals", t, func() {
		svc := service.New(
			service.WithConsensusTimeout(100*time.Millisecond),
			service.WithWorkerCount(1),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		g := testGame("degraded-1")
		So(svc.RegisterGame(ctx, g), ShouldBeNil)

		Convey("When consensus is requested with no predictions at all", func() {
			_, err := svc.GetConsensus(ctx, g.GameID)

			Convey("Then it is incomplete rather than degraded", func() {
				So(errors.Is(err, consensus.ErrIncomplete), ShouldBeTrue)
				var ie *consensus.IncompleteError
				So(errors.As(err, &ie), ShouldBeTrue)
				So(len(ie.Missing), ShouldEqual, expert.DefaultRoster().Size())
			})
		})
	})
}

func TestService_ExpertsAndStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("When listing experts", func() {
			experts := svc.Experts(ctx)

			Convey("Then the default roster of fifteen comes back", func() {
				So(len(experts), ShouldEqual, 15)
				ids := make(map[string]bool, len(experts))
				for _, ex := range experts {
					ids[ex.ID] = true
					So(ex.Weights, ShouldNotBeEmpty)
				}
				So(len(ids), ShouldEqual, 15)
			})
		})

		Convey("When fetching one profile", func() {
			experts := svc.Experts(ctx)
			ex, err := svc.ExpertProfile(ctx, experts[0].ID)

			Convey("Then the snapshot matches the roster entry", func() {
				So(err, ShouldBeNil)
				So(ex.ID, ShouldEqual, experts[0].ID)
			})
		})

		Convey("When fetching an unknown profile", func() {
			_, err := svc.ExpertProfile(ctx, "nobody")

			Convey("Then lookup fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When reading stats", func() {
			g := testGame("stats-1")
			So(svc.RegisterGame(ctx, g), ShouldBeNil)

			stats := svc.GetStats()

			Convey("Then the snapshot reflects the running service", func() {
				So(stats.Started, ShouldBeTrue)
				So(stats.Experts, ShouldEqual, 15)
				So(stats.GamesTracked, ShouldEqual, 1)
				So(stats.QueueLength, ShouldBeGreaterThanOrEqualTo, 0)
				So(stats.MemoriesStored, ShouldEqual, 0)
			})
		})
	})
}

func TestService_LearningSideEffects(t *testing.T) {
	Convey("Given a settled game", t, func() {
		svc := startedService(t)
		ctx := context.Background()
		g := testGame("learning-1")

		So(svc.RegisterGame(ctx, g), ShouldBeNil)
		_, err := svc.GeneratePredictions(ctx, g.GameID)
		So(err, ShouldBeNil)
		_, err = svc.GetConsensus(ctx, g.GameID)
		So(err, ShouldBeNil)

		before := svc.Experts(ctx)
		So(svc.ApplyOutcome(ctx, g.GameID, finalOutcome(g.GameID)), ShouldBeNil)
		after := svc.Experts(ctx)

		Convey("Then expert stats reflect the processed game", func() {
			for i := range after {
				So(after[i].Stats.SampleCount, ShouldEqual, before[i].Stats.SampleCount+1)
			}
		})

		Convey("Then every expert stored an episodic memory", func() {
			So(svc.GetStats().MemoriesStored, ShouldEqual, 15)
		})
	})
}
