package engine_test

import (
	"context"
	"errors"
	"testing"

	eval "github.com/okian/kata/internal/domain/eval"
	ruleset "github.com/okian/kata/internal/domain/ruleset"
	skeleton "github.com/okian/kata/internal/domain/skeleton"
	engine "github.com/okian/kata/internal/engine"
	. "github.com/smartystreets/goconvey/convey"
)

// stubPlugin serves canned metrics and series for any phase.
type stubPlugin struct {
	metrics map[string]float64
	series  map[string][]float64
}

func (p *stubPlugin) Metrics(string, skeleton.Sequence, skeleton.Sequence) (map[string]float64, error) {
	return p.metrics, nil
}

func (p *stubPlugin) MetricSeries(string, skeleton.Sequence, skeleton.Sequence) (map[string][]float64, error) {
	return p.series, nil
}

func (p *stubPlugin) MetricsByPhase() map[string][]string {
	return map[string][]string{"*": {"delta"}}
}

func (p *stubPlugin) ConditionTypes() []ruleset.ConditionKind {
	return []ruleset.ConditionKind{ruleset.KindThreshold}
}

func frames(n int) skeleton.Sequence {
	seq := make(skeleton.Sequence, n)
	for i := range seq {
		f := make(skeleton.Frame, skeleton.JointCount)
		for j := range f {
			f[j] = skeleton.Vec3{float64(i), float64(j), 1}
		}
		seq[i] = f
	}
	return seq
}

func threshold(id, metric string, op ruleset.Op, value float64) ruleset.Condition {
	return ruleset.Condition{
		ID:        id,
		Kind:      ruleset.KindThreshold,
		Threshold: &ruleset.ThresholdSpec{Metric: metric, Op: op, Value: value},
	}
}

func TestAnalyze(t *testing.T) {
	Convey("Given a two-phase definition over a plugin with one metric", t, func() {
		def := &ruleset.Definition{
			SchemaVersion: ruleset.SchemaV2,
			RuleSetID:     "t-ruleset",
			Phases: []ruleset.Phase{
				{ID: "wind_up", FrameRange: &skeleton.FrameRange{Start: 0, End: 9}},
				{ID: "release", FrameRange: &skeleton.FrameRange{Start: 10, End: 19}},
			},
			Rules: []ruleset.Rule{
				{
					ID: "r-pass", PhaseID: "wind_up", Label: "stay level",
					Conditions: []ruleset.Condition{threshold("c1", "delta", ruleset.OpLTE, 1.0)},
					Scoring:    ruleset.DefaultScoring(),
				},
				{
					ID: "r-fail", PhaseID: "wind_up", Label: "stay fast",
					Conditions: []ruleset.Condition{threshold("c1", "delta", ruleset.OpGTE, 9.0)},
					Scoring:    ruleset.DefaultScoring(),
					Feedback:   []ruleset.Feedback{{ConditionIDs: []string{"c1"}, Message: "speed up"}},
				},
				{
					ID: "r-solo", PhaseID: "release",
					Conditions: []ruleset.Condition{threshold("c1", "delta", ruleset.OpLT, 2.0)},
					Scoring:    ruleset.DefaultScoring(),
				},
			},
		}
		stub := &stubPlugin{metrics: map[string]float64{"delta": 0.5}}
		eng := engine.New(def, stub)

		Convey("When both sequences cover every phase", func() {
			res, err := eng.Analyze(context.Background(), frames(30), frames(30), eval.Context{})

			Convey("Then every phase is judged in declaration order", func() {
				So(err, ShouldBeNil)
				So(res.Order, ShouldResemble, []string{"wind_up", "release"})
			})

			Convey("Then the step score follows the pass/fail marks", func() {
				So(err, ShouldBeNil)
				windUp := res.Phases["wind_up"]
				// one pass (100) and one fail (30), truncated mean
				So(windUp.Score, ShouldEqual, 65)
				So(windUp.Classification, ShouldEqual, "mid")
				release := res.Phases["release"]
				So(release.Score, ShouldEqual, 100)
				So(release.Classification, ShouldEqual, "correct")
			})

			Convey("Then failed rules surface their feedback", func() {
				So(err, ShouldBeNil)
				failed := res.Phases["wind_up"].Rules["r-fail"]
				So(failed.Passed, ShouldBeFalse)
				So(failed.Feedback, ShouldHaveLength, 1)
				So(failed.Feedback[0].Message, ShouldEqual, "speed up")
			})

			Convey("Then no timings are recorded by default", func() {
				So(err, ShouldBeNil)
				So(res.Meta, ShouldBeNil)
				So(res.Phases["wind_up"].TimingsSec, ShouldBeNil)
			})
		})

		Convey("When timings are requested", func() {
			res, err := engine.New(def, stub, engine.WithTimings()).
				Analyze(context.Background(), frames(30), frames(30), eval.Context{})

			Convey("Then per-phase and run-level timings are present", func() {
				So(err, ShouldBeNil)
				So(res.Meta, ShouldNotBeNil)
				So(res.Meta.TimingsSec, ShouldContainKey, "preprocess")
				So(res.Meta.TimingsSec, ShouldContainKey, "total")
				phase := res.Phases["wind_up"]
				So(phase.TimingsSec, ShouldContainKey, "extract_data")
				So(phase.TimingsSec, ShouldContainKey, "compute_metrics")
				So(phase.TimingsSec, ShouldContainKey, "evaluate_rules")
				So(phase.TimingsSec, ShouldContainKey, "total")
			})
		})

		Convey("When the shorter clip ends inside an explicit range", func() {
			// coach stops at frame 14: phase two declares [10,19]
			_, err := eng.Analyze(context.Background(), frames(30), frames(15), eval.Context{})

			Convey("Then the call fails instead of narrowing the range", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, skeleton.ErrFrameRange), ShouldBeTrue)
			})
		})

		Convey("When an explicit range reaches far past both clips", func() {
			def.Phases[1].FrameRange = &skeleton.FrameRange{Start: 10, End: 500}
			_, err := eng.Analyze(context.Background(), frames(100), frames(100), eval.Context{})

			Convey("Then the call fails instead of narrowing the range", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, skeleton.ErrFrameRange), ShouldBeTrue)
			})
		})

		Convey("When a condition references a metric the plugin never computed", func() {
			def.Rules[0].Conditions = []ruleset.Condition{threshold("c1", "ghost", ruleset.OpLTE, 1.0)}
			_, err := eng.Analyze(context.Background(), frames(30), frames(30), eval.Context{})

			Convey("Then the whole call fails with a missing-metric error", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, eval.ErrMissingMetric), ShouldBeTrue)
			})
		})

		Convey("When one side has no frames at all", func() {
			_, err := eng.Analyze(context.Background(), frames(30), nil, eval.Context{})

			Convey("Then the call is rejected up front", func() {
				So(errors.Is(err, engine.ErrEmptyInput), ShouldBeTrue)
			})
		})
	})

	Convey("Given a definition with an unknown preprocessing step", t, func() {
		def := &ruleset.Definition{
			SchemaVersion: ruleset.SchemaV2,
			Inputs:        ruleset.Inputs{Preprocess: []string{"polish_halo", "align_orientation"}},
			Phases:        []ruleset.Phase{{ID: "p1", FrameRange: &skeleton.FrameRange{Start: 0, End: 4}}},
		}
		stub := &stubPlugin{metrics: map[string]float64{}}

		Convey("When analyzed with a warning hook installed", func() {
			var skipped []string
			eng := engine.New(def, stub, engine.WithWarnFunc(func(step string) {
				skipped = append(skipped, step)
			}))
			_, err := eng.Analyze(context.Background(), frames(10), frames(10), eval.Context{})

			Convey("Then the unknown step is skipped and reported, not fatal", func() {
				So(err, ShouldBeNil)
				So(skipped, ShouldResemble, []string{"polish_halo"})
			})
		})
	})

	Convey("Given a rule mixing plain and composite conditions", t, func() {
		def := &ruleset.Definition{
			SchemaVersion: ruleset.SchemaV2,
			Phases:        []ruleset.Phase{{ID: "p1", FrameRange: &skeleton.FrameRange{Start: 0, End: 4}}},
			Rules: []ruleset.Rule{{
				ID: "combo", PhaseID: "p1",
				Conditions: []ruleset.Condition{
					// composite declared first: still evaluated after its siblings
					{ID: "any_of", Kind: ruleset.KindComposite, Composite: &ruleset.CompositeSpec{
						Logic: ruleset.LogicAny, Refs: []string{"lo", "hi"},
					}},
					threshold("lo", "delta", ruleset.OpLTE, 1.0),
					threshold("hi", "delta", ruleset.OpGTE, 9.0),
				},
				Scoring: ruleset.DefaultScoring(),
			}},
		}
		stub := &stubPlugin{metrics: map[string]float64{"delta": 0.5}}

		Convey("When analyzed", func() {
			res, err := engine.New(def, stub).Analyze(context.Background(), frames(10), frames(10), eval.Context{})

			Convey("Then the composite sees its siblings' outcomes", func() {
				So(err, ShouldBeNil)
				rule := res.Phases["p1"].Rules["combo"]
				So(rule.Conditions[0].ID, ShouldEqual, "any_of")
				So(rule.Conditions[0].Passed, ShouldBeTrue)
				So(rule.Passed, ShouldBeFalse) // "hi" failed
			})
		})
	})
}

func TestResolveFrameRange(t *testing.T) {
	Convey("Given an engine and an event table", t, func() {
		def := &ruleset.Definition{SchemaVersion: ruleset.SchemaV2}
		eng := engine.New(def, &stubPlugin{})
		ec := eval.Context{
			FPS:    30,
			Events: map[string]eval.Event{"impact": eval.FrameEvent(90)},
		}

		Convey("When a phase uses an event window of [-100ms, 200ms]", func() {
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "impact", WindowMS: [2]float64{-100, 200}},
			}
			r, err := eng.ResolveFrameRange(phase, ec, 500)

			Convey("Then each bound is round(ms*fps/1000) from the anchor", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, skeleton.FrameRange{Start: 87, End: 96})
			})
		})

		Convey("When the event is a millisecond timestamp", func() {
			ec.Events["impact"] = eval.TimestampEvent(3000) // frame 90 at 30 fps
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "impact", WindowMS: [2]float64{-100, 200}},
			}
			r, err := eng.ResolveFrameRange(phase, ec, 500)

			Convey("Then it resolves through the same rounding rule", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, skeleton.FrameRange{Start: 87, End: 96})
			})
		})

		Convey("When the window lands past the end of the clip", func() {
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "impact", WindowMS: [2]float64{-100, 200}},
			}
			r, err := eng.ResolveFrameRange(phase, ec, 92)

			Convey("Then the range clamps to the clip", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, skeleton.FrameRange{Start: 87, End: 92})
			})
		})

		Convey("When the window is inverted", func() {
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "impact", WindowMS: [2]float64{200, -100}},
			}
			r, err := eng.ResolveFrameRange(phase, ec, 500)

			Convey("Then the bounds swap instead of failing", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, skeleton.FrameRange{Start: 87, End: 96})
			})
		})

		Convey("When the event is missing from the context", func() {
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "lift_off", WindowMS: [2]float64{-100, 200}},
			}
			_, err := eng.ResolveFrameRange(phase, ec, 500)

			Convey("Then resolution fails", func() {
				So(errors.Is(err, engine.ErrMissingEvent), ShouldBeTrue)
			})
		})

		Convey("When no fps is configured", func() {
			phase := &ruleset.Phase{
				ID:          "strike",
				EventWindow: &ruleset.EventWindow{Event: "impact", WindowMS: [2]float64{-100, 200}},
			}
			_, err := eng.ResolveFrameRange(phase, eval.Context{Events: ec.Events}, 500)

			Convey("Then resolution fails", func() {
				So(errors.Is(err, engine.ErrMissingFPS), ShouldBeTrue)
			})
		})

		Convey("When a phase declares neither frame source", func() {
			_, err := eng.ResolveFrameRange(&ruleset.Phase{ID: "empty"}, ec, 500)

			Convey("Then resolution fails", func() {
				So(errors.Is(err, engine.ErrNoFrameSource), ShouldBeTrue)
			})
		})

		Convey("When a phase has an explicit range", func() {
			phase := &ruleset.Phase{ID: "fixed", FrameRange: &skeleton.FrameRange{Start: 5, End: 900}}
			r, err := eng.ResolveFrameRange(phase, ec, 100)

			Convey("Then it passes through untouched, even past the clip", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, skeleton.FrameRange{Start: 5, End: 900})
			})
		})
	})
}
