package scoring_test

import (
	"testing"

	eval "github.com/okian/kata/internal/domain/eval"
	ruleset "github.com/okian/kata/internal/domain/ruleset"
	scoring "github.com/okian/kata/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func outcomes(passed ...bool) []eval.Result {
	out := make([]eval.Result, len(passed))
	for i, p := range passed {
		out[i] = eval.Result{ID: string(rune('a' + i)), Passed: p}
	}
	return out
}

func TestAggregate(t *testing.T) {
	Convey("Given the all-or-nothing policy", t, func() {
		policy := ruleset.Scoring{Mode: ruleset.ModeAllOrNothing, PassScore: 1.0, MaxScore: 1.0}

		Convey("Then a clean sweep earns the full score", func() {
			So(scoring.Aggregate(policy, outcomes(true, true)), ShouldEqual, 1.0)
		})

		Convey("Then a single failure earns nothing", func() {
			So(scoring.Aggregate(policy, outcomes(true, false)), ShouldEqual, 0.0)
		})

		Convey("Then a rule with no conditions earns its full score", func() {
			So(scoring.Aggregate(policy, nil), ShouldEqual, 1.0)
		})
	})

	Convey("Given the average policy", t, func() {
		policy := ruleset.Scoring{Mode: ruleset.ModeAverage, PassScore: 1.0, MaxScore: 100.0}

		Convey("Then the score is proportional to the pass count", func() {
			got := scoring.Aggregate(policy, outcomes(true, true, false))
			So(got, ShouldAlmostEqual, 100.0*2/3)
			So(int(got), ShouldEqual, 66) // truncates to 66 when reported as an integer
		})
	})

	Convey("Given the weighted policy", t, func() {
		policy := ruleset.Scoring{
			Mode:      ruleset.ModeWeighted,
			PassScore: 1.0,
			MaxScore:  10.0,
			Weights:   map[string]float64{"a": 3.0, "b": 1.0},
		}

		Convey("When only the heavy condition passes", func() {
			res := []eval.Result{
				{ID: "a", Passed: true},
				{ID: "b", Passed: false},
			}

			Convey("Then the score follows the weight share", func() {
				So(scoring.Aggregate(policy, res), ShouldAlmostEqual, 7.5) // 10 * 3/4
			})
		})

		Convey("When a passed condition has no weight entry", func() {
			res := []eval.Result{
				{ID: "a", Passed: false},
				{ID: "unlisted", Passed: true},
			}

			Convey("Then it contributes nothing", func() {
				So(scoring.Aggregate(policy, res), ShouldEqual, 0.0)
			})
		})

		Convey("When the weight table is empty", func() {
			bare := ruleset.Scoring{Mode: ruleset.ModeWeighted, MaxScore: 10.0}

			Convey("Then the denominator falls back to one", func() {
				So(scoring.Aggregate(bare, outcomes(true)), ShouldEqual, 0.0)
			})
		})
	})

	Convey("Given an unknown mode", t, func() {
		policy := ruleset.Scoring{Mode: "median", PassScore: 0.7, MaxScore: 1.0}

		Convey("Then it degrades to pass score on a clean sweep", func() {
			So(scoring.Aggregate(policy, outcomes(true, true)), ShouldEqual, 0.7)
			So(scoring.Aggregate(policy, outcomes(true, false)), ShouldEqual, 0.0)
		})
	})

	Convey("Given a zero mode", t, func() {
		policy := ruleset.Scoring{MaxScore: 5.0}

		Convey("Then it behaves as all-or-nothing", func() {
			So(scoring.Aggregate(policy, outcomes(true)), ShouldEqual, 5.0)
			So(scoring.Aggregate(policy, outcomes(false)), ShouldEqual, 0.0)
		})
	})
}

func TestSelectFeedback(t *testing.T) {
	entries := []ruleset.Feedback{
		{ConditionIDs: []string{"c1"}, Message: "keep your weight back"},
		{ConditionIDs: []string{"c2", "c3"}, Message: "steady your head"},
		{ConditionIDs: []string{"c4"}, Message: "never shown"},
	}

	Convey("Given a mix of failed and passed conditions", t, func() {
		res := []eval.Result{
			{ID: "c1", Passed: false},
			{ID: "c2", Passed: true},
			{ID: "c3", Passed: false},
			{ID: "c4", Passed: true},
		}

		Convey("When feedback is selected", func() {
			got := scoring.SelectFeedback(entries, res)

			Convey("Then entries touching any failed condition surface in order", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].Message, ShouldEqual, "keep your weight back")
				So(got[1].Message, ShouldEqual, "steady your head")
			})
		})
	})

	Convey("Given all conditions passed", t, func() {
		got := scoring.SelectFeedback(entries, outcomes(true, true))

		Convey("Then no feedback surfaces", func() {
			So(got, ShouldBeEmpty)
		})
	})
}

func TestClassifyStep(t *testing.T) {
	Convey("Given rule verdicts for a step", t, func() {
		So(scoring.ClassifyStep([]bool{true, true}), ShouldEqual, scoring.ClassCorrect)
		So(scoring.ClassifyStep([]bool{false, false}), ShouldEqual, scoring.ClassWrong)
		So(scoring.ClassifyStep([]bool{true, false}), ShouldEqual, scoring.ClassMid)
		So(scoring.ClassifyStep(nil), ShouldEqual, scoring.ClassMid)
	})
}

func TestStepScore(t *testing.T) {
	Convey("Given rule verdicts for a step", t, func() {
		Convey("Then passes take the green mark and failures the red one", func() {
			So(scoring.StepScore([]bool{true}), ShouldEqual, 100)
			So(scoring.StepScore([]bool{false}), ShouldEqual, 30)
			So(scoring.StepScore([]bool{true, false}), ShouldEqual, 65)
		})

		Convey("Then the average truncates", func() {
			So(scoring.StepScore([]bool{true, true, false}), ShouldEqual, 76) // 230/3
		})

		Convey("Then a step with no rules scores full marks", func() {
			So(scoring.StepScore(nil), ShouldEqual, 100)
		})
	})
}
