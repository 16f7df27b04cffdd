// Package engine runs a rule definition against a student/coach skeleton
// pair and produces the per-phase judgment: computed metrics, rule verdicts,
// step scores, classifications, and feedback.
//
// Conventions:
// - Analyze is a pure computation: no files are written, inputs are never
//   mutated, and any failure aborts the whole call. There are no partial
//   phase results.
// - The one tolerated unknown is an unrecognized preprocessing step name,
//   which is skipped and surfaced through the warning hook.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/kata/internal/domain/eval"
	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/scoring"
	"github.com/okian/kata/internal/domain/skeleton"
	"github.com/okian/kata/internal/plugin"
)

// Engine evaluates one rule definition with one metric plugin.
type Engine struct {
	def    *ruleset.Definition
	plugin plugin.Plugin

	timings bool
	warn    skeleton.WarnFunc
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTimings enables per-stage wall-clock profiling. Each phase result
// carries extract/metrics/rules timings and the result gains a _meta entry.
func WithTimings() Option {
	return func(e *Engine) {
		e.timings = true
	}
}

// WithWarnFunc installs the hook that receives skipped preprocessing step
// names. Without one, unknown steps are skipped silently.
func WithWarnFunc(fn skeleton.WarnFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.warn = fn
		}
	}
}

// New creates an engine for a parsed rule definition and a plugin instance.
func New(def *ruleset.Definition, p plugin.Plugin, opts ...Option) *Engine {
	e := &Engine{def: def, plugin: p}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze evaluates every phase of the definition, in declaration order,
// against the skeleton pair. The context is checked between phases only;
// a single phase never suspends.
func (e *Engine) Analyze(ctx context.Context, student, coach skeleton.Sequence, ec eval.Context) (Result, error) {
	overallStart := time.Now()

	if len(student) == 0 || len(coach) == 0 {
		return Result{}, fmt.Errorf("%w: student has %d frames, coach has %d", ErrEmptyInput, len(student), len(coach))
	}

	// Indices must stay valid on both sides, so the pair is truncated to
	// the shorter clip before anything else sees it.
	maxFrame := min(len(student), len(coach)) - 1
	student = student[:maxFrame+1]
	coach = coach[:maxFrame+1]

	prepStart := time.Now()
	pipeline := skeleton.NewPipeline(e.def.Inputs.Preprocess, skeleton.WithWarnFunc(e.warn))
	student, coach, err := pipeline.Apply(student, coach)
	if err != nil {
		return Result{}, fmt.Errorf("preprocess: %w", err)
	}
	prepElapsed := time.Since(prepStart)

	out := Result{
		Phases: make(map[string]PhaseResult, len(e.def.Phases)),
		Order:  make([]string, 0, len(e.def.Phases)),
	}

	for i := range e.def.Phases {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("analyze aborted: %w", err)
		}
		phase := &e.def.Phases[i]
		res, err := e.analyzePhase(phase, student, coach, ec, maxFrame)
		if err != nil {
			return Result{}, fmt.Errorf("phase %q: %w", phase.ID, err)
		}
		out.Phases[phase.ID] = res
		out.Order = append(out.Order, phase.ID)
	}

	if e.timings {
		out.Meta = &Meta{TimingsSec: map[string]float64{
			"preprocess": roundSec(prepElapsed),
			"total":      roundSec(time.Since(overallStart)),
		}}
	}
	return out, nil
}

func (e *Engine) analyzePhase(phase *ruleset.Phase, student, coach skeleton.Sequence, ec eval.Context, maxFrame int) (PhaseResult, error) {
	phaseStart := time.Now()

	frameRange, err := e.ResolveFrameRange(phase, ec, maxFrame)
	if err != nil {
		return PhaseResult{}, err
	}

	extractStart := time.Now()
	stuPhase, err := student.Extract(frameRange)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("student: %w", err)
	}
	coaPhase, err := coach.Extract(frameRange)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("coach: %w", err)
	}
	extractElapsed := time.Since(extractStart)

	metricsStart := time.Now()
	metrics, err := e.plugin.Metrics(phase.ID, stuPhase, coaPhase)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("compute metrics: %w", err)
	}
	var series map[string][]float64
	if sc, ok := e.plugin.(plugin.SeriesComputer); ok {
		if series, err = sc.MetricSeries(phase.ID, stuPhase, coaPhase); err != nil {
			return PhaseResult{}, fmt.Errorf("compute metric series: %w", err)
		}
	}
	metricsElapsed := time.Since(metricsStart)

	rulesStart := time.Now()
	in := eval.Input{
		Metrics: metrics,
		Series:  series,
		Context: ec,
		Student: stuPhase,
		Coach:   coaPhase,
	}
	rules := e.def.RulesForPhase(phase.ID)
	results := make(map[string]RuleResult, len(rules))
	order := make([]string, 0, len(rules))
	passed := make([]bool, 0, len(rules))
	for i := range rules {
		rr, err := evaluateRule(&rules[i], in)
		if err != nil {
			return PhaseResult{}, err
		}
		results[rr.RuleID] = rr
		order = append(order, rr.RuleID)
		passed = append(passed, rr.Passed)
	}
	rulesElapsed := time.Since(rulesStart)

	out := PhaseResult{
		Rules:          results,
		Score:          scoring.StepScore(passed),
		Classification: scoring.ClassifyStep(passed),
		Metrics:        metrics,
		FrameRange:     frameRange,
		ruleOrder:      order,
	}
	if e.timings {
		out.TimingsSec = map[string]float64{
			"extract_data":    roundSec(extractElapsed),
			"compute_metrics": roundSec(metricsElapsed),
			"evaluate_rules":  roundSec(rulesElapsed),
			"total":           roundSec(time.Since(phaseStart)),
		}
	}
	return out, nil
}

// evaluateRule decides every condition of a rule and folds the outcomes into
// the rule verdict. Composite conditions reference sibling outcomes, so they
// run in a second pass after every plain condition is decided.
func evaluateRule(rule *ruleset.Rule, in eval.Input) (RuleResult, error) {
	byID := make(map[string]eval.Result, len(rule.Conditions))

	for i := range rule.Conditions {
		cond := rule.Conditions[i]
		if cond.Kind == ruleset.KindComposite {
			continue
		}
		res, err := eval.Evaluate(cond, in)
		if err != nil {
			return RuleResult{}, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		byID[cond.ID] = res
	}

	for i := range rule.Conditions {
		cond := rule.Conditions[i]
		if cond.Kind != ruleset.KindComposite {
			continue
		}
		res, err := eval.EvaluateComposite(cond, byID)
		if err != nil {
			return RuleResult{}, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		byID[cond.ID] = res
	}

	// Report in declaration order; the two-pass evaluation above is an
	// implementation detail.
	outcomes := make([]eval.Result, 0, len(rule.Conditions))
	rulePassed := true
	for i := range rule.Conditions {
		res := byID[rule.Conditions[i].ID]
		outcomes = append(outcomes, res)
		if !res.Passed {
			rulePassed = false
		}
	}

	return RuleResult{
		RuleID:     rule.ID,
		Label:      rule.Label,
		Passed:     rulePassed,
		Score:      scoring.Aggregate(rule.Scoring, outcomes),
		Conditions: outcomes,
		Feedback:   scoring.SelectFeedback(rule.Feedback, outcomes),
	}, nil
}

// ResolveFrameRange turns a phase's frame source into a concrete inclusive
// range. An explicit range passes through verbatim: a range reaching past
// the clip is an authoring error and fails at extraction rather than being
// narrowed. Event windows are clamped to [0, maxFrame]. Explicit ranges win
// over event windows.
func (e *Engine) ResolveFrameRange(phase *ruleset.Phase, ec eval.Context, maxFrame int) (skeleton.FrameRange, error) {
	if phase.FrameRange != nil {
		return *phase.FrameRange, nil
	}
	if phase.EventWindow != nil {
		return resolveEventWindow(phase.EventWindow, ec, maxFrame)
	}
	return skeleton.FrameRange{}, fmt.Errorf("%w: need frame_range or event_window", ErrNoFrameSource)
}

// resolveEventWindow places the window's millisecond offsets around the
// anchoring event's frame. Both offsets and timestamp events convert through
// round(ms * fps / 1000).
func resolveEventWindow(w *ruleset.EventWindow, ec eval.Context, maxFrame int) (skeleton.FrameRange, error) {
	if ec.FPS <= 0 {
		return skeleton.FrameRange{}, fmt.Errorf("%w: event window %q needs it", ErrMissingFPS, w.Event)
	}
	event, ok := ec.Events[w.Event]
	if !ok {
		return skeleton.FrameRange{}, fmt.Errorf("%w: %q", ErrMissingEvent, w.Event)
	}
	anchor, err := event.ResolveFrame(ec.FPS)
	if err != nil {
		return skeleton.FrameRange{}, fmt.Errorf("event %q: %w", w.Event, err)
	}

	r := skeleton.FrameRange{
		Start: anchor + msToFrames(w.WindowMS[0], ec.FPS),
		End:   anchor + msToFrames(w.WindowMS[1], ec.FPS),
	}
	return r.Clamp(maxFrame), nil
}

func msToFrames(ms, fps float64) int {
	return int(math.Round(ms * fps / 1000.0))
}

// roundSec reports a duration in seconds at microsecond precision, the
// resolution the timing artifacts are written with.
func roundSec(d time.Duration) float64 {
	return math.Round(d.Seconds()*1e6) / 1e6
}
