package expert_test

import (
	"errors"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/domain/expert"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func neutral() expert.PersonalityVector {
	return expert.PersonalityVector{
		RiskTaking: 0.5, Optimism: 0.5, Analytical: 0.5,
		Contrarian: 0.5, Momentum: 0.5, ValueSeeking: 0.5, Emotional: 0.5,
	}
}

func TestExpert_New(t *testing.T) {
	Convey("Given expert construction", t, func() {
		Convey("When the traits and learning rate are valid", func() {
			ex, err := expert.New("quant", "The Quant", neutral(), 0.1)

			Convey("Then the expert starts neutral", func() {
				So(err, ShouldBeNil)
				So(ex.Weights[model.CategoryWinner], ShouldEqual, 1.0)
				So(ex.Stats.CategoryAccuracy[model.CategoryWinner], ShouldEqual, 0.5)
				So(ex.Stats.Trend, ShouldEqual, expert.TrendFlat)
				So(ex.Stats.SampleCount, ShouldEqual, 0)
			})
		})

		Convey("When a trait leaves the unit interval", func() {
			p := neutral()
			p.Optimism = 1.3
			_, err := expert.New("x", "X", p, 0.1)

			Convey("Then construction fails", func() {
				So(errors.Is(err, expert.ErrInvalidTrait), ShouldBeTrue)
			})
		})

		Convey("When the learning rate is out of range", func() {
			_, err := expert.New("x", "X", neutral(), 1.0)

			Convey("Then construction fails", func() {
				So(errors.Is(err, expert.ErrInvalidLearningRate), ShouldBeTrue)
			})
		})
	})
}

func TestExpert_Snapshot(t *testing.T) {
	Convey("Given an expert snapshot", t, func() {
		ex, err := expert.New("quant", "The Quant", neutral(), 0.1)
		So(err, ShouldBeNil)

		snap := ex.Snapshot()
		snap.Weights[model.CategoryWinner] = 2.0
		snap.Stats.CategoryAccuracy[model.CategoryWinner] = 0.9
		snap.Stats.Recent = append(snap.Stats.Recent, 1.0)

		Convey("Then mutating the snapshot leaves the expert untouched", func() {
			So(ex.Weights[model.CategoryWinner], ShouldEqual, 1.0)
			So(ex.Stats.CategoryAccuracy[model.CategoryWinner], ShouldEqual, 0.5)
			So(ex.Stats.Recent, ShouldBeEmpty)
		})
	})
}

func TestRoster(t *testing.T) {
	Convey("Given roster construction", t, func() {
		Convey("When building from distinct experts", func() {
			a, _ := expert.New("a", "A", neutral(), 0.1)
			b, _ := expert.New("b", "B", neutral(), 0.2)
			r, err := expert.NewRoster([]*expert.Expert{a, b})

			Convey("Then lookups and ordering hold", func() {
				So(err, ShouldBeNil)
				So(r.Size(), ShouldEqual, 2)
				So(r.IDs(), ShouldResemble, []string{"a", "b"})

				got, err := r.Get("b")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "B")

				_, err = r.Get("nobody")
				So(errors.Is(err, expert.ErrUnknownExpert), ShouldBeTrue)
			})
		})

		Convey("When two experts share an id", func() {
			a, _ := expert.New("a", "A", neutral(), 0.1)
			dup, _ := expert.New("a", "A2", neutral(), 0.2)
			_, err := expert.NewRoster([]*expert.Expert{a, dup})

			Convey("Then the roster is invalid", func() {
				So(errors.Is(err, expert.ErrInvalidRoster), ShouldBeTrue)
			})
		})

		Convey("When the roster is empty", func() {
			_, err := expert.NewRoster(nil)

			Convey("Then the roster is invalid", func() {
				So(errors.Is(err, expert.ErrInvalidRoster), ShouldBeTrue)
			})
		})
	})
}

func TestDefaultRoster(t *testing.T) {
	Convey("Given the built-in roster", t, func() {
		r := expert.DefaultRoster()

		Convey("Then it carries fifteen distinct personalities", func() {
			So(r.Size(), ShouldEqual, 15)

			seen := make(map[expert.PersonalityVector]bool)
			for _, ex := range r.All() {
				So(ex.Personality.Validate(), ShouldBeNil)
				So(ex.LearningRate, ShouldBeBetween, 0, 1)
				seen[ex.Personality] = true
			}
			So(len(seen), ShouldEqual, 15)
		})
	})
}

func TestLoadRosterFile(t *testing.T) {
	Convey("Given a YAML roster file", t, func() {
		yamlContent := `
experts:
  - id: "quant"
    name: "The Quant"
    learning_rate: 0.1
    personality:
      risk_taking: 0.2
      optimism: 0.5
      analytical: 0.95
      contrarian: 0.3
      momentum: 0.2
      value_seeking: 0.6
      emotional: 0.05
  - id: "gut"
    name: "The Gut Feel"
    learning_rate: 0.4
    personality:
      risk_taking: 0.7
      optimism: 0.55
      analytical: 0.05
      contrarian: 0.35
      momentum: 0.6
      value_seeking: 0.2
      emotional: 0.95
`
		path := writeTempRoster(t, yamlContent)

		Convey("When loading it", func() {
			r, err := expert.LoadRosterFile(path)

			Convey("Then the file roster replaces the default", func() {
				So(err, ShouldBeNil)
				So(r.Size(), ShouldEqual, 2)

				ex, err := r.Get("gut")
				So(err, ShouldBeNil)
				So(ex.Personality.Emotional, ShouldEqual, 0.95)
				So(ex.LearningRate, ShouldEqual, 0.4)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := expert.LoadRosterFile("/no/such/roster.yaml")

			Convey("Then loading fails", func() {
				So(errors.Is(err, expert.ErrInvalidRoster), ShouldBeTrue)
			})
		})

		Convey("When an entry has an invalid learning rate", func() {
			bad := writeTempRoster(t, `
experts:
  - id: "broken"
    name: "Broken"
    learning_rate: 2.0
    personality:
      risk_taking: 0.5
`)
			_, err := expert.LoadRosterFile(bad)

			Convey("Then loading fails", func() {
				So(errors.Is(err, expert.ErrInvalidRoster), ShouldBeTrue)
			})
		})
	})
}

func writeTempRoster(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "roster-*.yaml")
	if err != nil {
		t.Fatalf("create temp roster: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp roster: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp roster: %v", err)
	}
	return f.Name()
}
