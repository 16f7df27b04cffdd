// Package eval decides whether a single rule condition holds against the
// metrics, metric series, and skeleton frames of one phase.
//
// Conventions:
// - Evaluation is pure: no I/O, no shared state, inputs never mutated.
// - A condition that cannot be decided is an error; only a decided false is
//   a failure.
// - NaN metric values never pass a comparison; missing capture data stays
//   missing instead of reading as zero.
package eval

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
)

// Result is the outcome of one condition: whether it passed and the observed
// value that decided it. Value is a float64 for numeric conditions, a bool
// for boolean conditions, a map of referenced outcomes for composites, and
// the event name for event checks.
type Result struct {
	ID     string `json:"id"`
	Passed bool   `json:"passed"`
	Value  any    `json:"value"`
}

// Input bundles everything a condition may consult.
type Input struct {
	Metrics map[string]float64
	Series  map[string][]float64
	Context Context
	Student skeleton.Sequence
	Coach   skeleton.Sequence
}

// Evaluate decides a non-composite condition. Composite conditions depend on
// sibling outcomes and go through EvaluateComposite instead.
func Evaluate(cond ruleset.Condition, in Input) (Result, error) {
	switch cond.Kind {
	case ruleset.KindThreshold:
		return evalThreshold(cond, in)
	case ruleset.KindRange:
		return evalRange(cond, in)
	case ruleset.KindBoolean:
		return evalBoolean(cond, in)
	case ruleset.KindTrend:
		return evalTrend(cond, in)
	case ruleset.KindAngle:
		return evalAngle(cond, in)
	case ruleset.KindDistance:
		return evalDistance(cond, in)
	case ruleset.KindEventExists:
		return evalEventExists(cond, in)
	case ruleset.KindComposite:
		return Result{}, fmt.Errorf("%w: condition %q: composite conditions are evaluated at the rule level", ErrInvalidCondition, cond.ID)
	}
	return Result{}, fmt.Errorf("%w: condition %q has unknown kind %q", ErrInvalidCondition, cond.ID, cond.Kind)
}

// EvaluateComposite decides a composite condition from the outcomes of the
// sibling conditions it references. Every referenced id must already be
// decided.
func EvaluateComposite(cond ruleset.Condition, byID map[string]Result) (Result, error) {
	spec := cond.Composite
	if spec == nil {
		return Result{}, specErr(cond.ID, "composite")
	}
	if len(spec.Refs) == 0 {
		return Result{}, fmt.Errorf("%w: composite %q requires non-empty conditions", ErrInvalidCondition, cond.ID)
	}

	var missing []string
	value := make(map[string]bool, len(spec.Refs))
	passedCount := 0
	for _, ref := range spec.Refs {
		r, ok := byID[ref]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		value[ref] = r.Passed
		if r.Passed {
			passedCount++
		}
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: composite %q references missing condition(s): %v", ErrMissingRef, cond.ID, missing)
	}

	var passed bool
	switch spec.Logic {
	case ruleset.LogicAll:
		passed = passedCount == len(spec.Refs)
	case ruleset.LogicAny:
		passed = passedCount > 0
	case ruleset.LogicNone:
		passed = passedCount == 0
	default:
		return Result{}, fmt.Errorf("%w: composite %q has unsupported logic %q", ErrInvalidCondition, cond.ID, spec.Logic)
	}
	return Result{ID: cond.ID, Passed: passed, Value: value}, nil
}

func evalThreshold(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Threshold
	if spec == nil {
		return Result{}, specErr(cond.ID, "threshold")
	}
	v, err := metricValue(in.Metrics, spec.Metric, cond.ID)
	if err != nil {
		return Result{}, err
	}
	passed := compareScalar(spec.Op, v, spec.Value, spec.Tolerance, spec.Abs)
	return Result{ID: cond.ID, Passed: passed, Value: v}, nil
}

func evalRange(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Range
	if spec == nil {
		return Result{}, specErr(cond.ID, "range")
	}
	v, err := metricValue(in.Metrics, spec.Metric, cond.ID)
	if err != nil {
		return Result{}, err
	}
	passed := withinRange(v, spec.Lower, spec.Upper, spec.Tolerance, spec.Abs)
	return Result{ID: cond.ID, Passed: passed, Value: v}, nil
}

func evalBoolean(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Boolean
	if spec == nil {
		return Result{}, specErr(cond.ID, "boolean")
	}
	v, err := metricValue(in.Metrics, spec.Metric, cond.ID)
	if err != nil {
		return Result{}, err
	}
	truthy := v != 0
	passed := truthy
	if spec.Op == ruleset.BoolIsFalse {
		passed = !truthy
	}
	return Result{ID: cond.ID, Passed: passed, Value: truthy}, nil
}

func evalTrend(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Trend
	if spec == nil {
		return Result{}, specErr(cond.ID, "trend")
	}
	series, ok := in.Series[spec.Metric]
	if !ok {
		return Result{}, fmt.Errorf("%w: metric series %q not computed for condition %q", ErrMissingSeries, spec.Metric, cond.ID)
	}

	windowed, err := windowSeries(series, spec, in.Context, cond.ID)
	if err != nil {
		return Result{}, err
	}

	delta := windowed[len(windowed)-1] - windowed[0]
	var passed bool
	switch spec.Op {
	case ruleset.TrendIncreasing:
		passed = delta > 0
	case ruleset.TrendDecreasing:
		passed = delta < 0
	default:
		return Result{}, fmt.Errorf("%w: condition %q has unsupported trend op %q", ErrInvalidCondition, cond.ID, spec.Op)
	}
	return Result{ID: cond.ID, Passed: passed, Value: delta}, nil
}

// windowSeries trims a series to the condition's tail window: first by
// sample count, then by the millisecond span converted through the capture
// FPS. At least two samples must survive.
func windowSeries(series []float64, spec *ruleset.TrendSpec, ec Context, condID string) ([]float64, error) {
	out := series
	if spec.WindowFrames > 0 {
		out = tail(out, spec.WindowFrames)
	}
	if spec.WindowMS != nil {
		if ec.FPS <= 0 {
			return nil, fmt.Errorf("%w: expected_fps is required to evaluate trend window_ms on condition %q", ErrNoData, condID)
		}
		durationMS := math.Abs(spec.WindowMS[1] - spec.WindowMS[0])
		count := int(math.Round(durationMS * ec.FPS / 1000.0))
		if count < 2 {
			count = 2
		}
		out = tail(out, count)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("%w: trend condition %q requires at least 2 samples", ErrNoData, condID)
	}
	return out, nil
}

func tail(s []float64, n int) []float64 {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

func evalAngle(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Angle
	if spec == nil {
		return Result{}, specErr(cond.ID, "angle")
	}
	stu, err := angleSeries(in.Student, spec.Joints, cond.ID)
	if err != nil {
		return Result{}, err
	}

	var lhs float64
	if len(in.Coach) > 0 {
		coa, err := angleSeries(in.Coach, spec.Joints, cond.ID)
		if err != nil {
			return Result{}, err
		}
		lhs = meanAbsDiff(stu, coa)
	} else {
		lhs = mean(stu)
	}

	passed := compareScalar(spec.Op, lhs, spec.Value, spec.Tolerance, spec.Abs)
	return Result{ID: cond.ID, Passed: passed, Value: lhs}, nil
}

func evalDistance(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Distance
	if spec == nil {
		return Result{}, specErr(cond.ID, "distance")
	}
	stu, err := distanceSeries(in.Student, spec.Pair, cond.ID)
	if err != nil {
		return Result{}, err
	}

	var lhs float64
	if len(in.Coach) > 0 {
		coa, err := distanceSeries(in.Coach, spec.Pair, cond.ID)
		if err != nil {
			return Result{}, err
		}
		lhs = meanAbsDiff(stu, coa)
	} else {
		lhs = mean(stu)
	}

	passed := compareScalar(spec.Op, lhs, spec.Value, spec.Tolerance, spec.Abs)
	return Result{ID: cond.ID, Passed: passed, Value: lhs}, nil
}

func evalEventExists(cond ruleset.Condition, in Input) (Result, error) {
	spec := cond.Event
	if spec == nil {
		return Result{}, specErr(cond.ID, "event")
	}
	name := strings.TrimSpace(spec.Event)
	if name == "" {
		return Result{}, fmt.Errorf("%w: condition %q requires a non-empty event", ErrInvalidCondition, cond.ID)
	}
	if !in.Context.HasEvent(name) {
		return Result{}, fmt.Errorf("%w: condition %q requires missing event %q", ErrMissingEvent, cond.ID, name)
	}
	return Result{ID: cond.ID, Passed: true, Value: map[string]string{"event": name}}, nil
}

// compareScalar applies a tolerance-widened scalar comparison. Abs applies
// to the compared copy only; callers keep reporting the signed value.
func compareScalar(op ruleset.Op, lhs, target, tol float64, abs bool) bool {
	if abs {
		lhs = math.Abs(lhs)
	}
	switch op {
	case ruleset.OpGTE:
		return lhs >= target-tol
	case ruleset.OpGT:
		return lhs > target-tol
	case ruleset.OpLTE:
		return lhs <= target+tol
	case ruleset.OpLT:
		return lhs < target+tol
	case ruleset.OpEQ:
		return math.Abs(lhs-target) <= tol
	case ruleset.OpNEQ:
		return math.Abs(lhs-target) > tol
	}
	return false
}

// withinRange checks lhs against [lower-tol, upper+tol].
func withinRange(lhs, lower, upper, tol float64, abs bool) bool {
	if abs {
		lhs = math.Abs(lhs)
	}
	return lower-tol <= lhs && lhs <= upper+tol
}

// angleSeries measures the condition's joint angle on every frame. With two
// joints the angle is taken between (j0-j1) and the +X axis; with three it
// is the angle at j1 between its neighbors.
func angleSeries(data skeleton.Sequence, joints []int, condID string) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: angle condition %q requires rule frame skeleton data", ErrNoData, condID)
	}
	out := make([]float64, len(data))
	for i, f := range data {
		var a, b skeleton.Vec3
		switch len(joints) {
		case 2:
			a = f[joints[0]].Sub(f[joints[1]])
			b = skeleton.Vec3{1, 0, 0}
		case 3:
			a = f[joints[0]].Sub(f[joints[1]])
			b = f[joints[2]].Sub(f[joints[1]])
		default:
			return nil, fmt.Errorf("%w: angle condition %q requires 2 or 3 joints", ErrInvalidCondition, condID)
		}
		if a.IsZero() || b.IsZero() {
			return nil, fmt.Errorf("%w: angle condition %q hit a zero-length vector at frame %d", ErrNoData, condID, i)
		}
		out[i] = skeleton.Angle(a, b)
	}
	return out, nil
}

// distanceSeries measures the per-frame distance between a joint pair.
func distanceSeries(data skeleton.Sequence, pair [2]int, condID string) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: distance condition %q requires rule frame skeleton data", ErrNoData, condID)
	}
	out := make([]float64, len(data))
	for i, f := range data {
		out[i] = f[pair[0]].Sub(f[pair[1]]).Norm()
	}
	return out, nil
}

func metricValue(metrics map[string]float64, name, condID string) (float64, error) {
	v, ok := metrics[name]
	if !ok {
		return 0, fmt.Errorf("%w: metric %q not computed for condition %q", ErrMissingMetric, name, condID)
	}
	return v, nil
}

func specErr(condID, kind string) error {
	return fmt.Errorf("%w: condition %q has no %s spec", ErrInvalidCondition, condID, kind)
}

func mean(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// meanAbsDiff averages |a[i]-b[i]| over the overlapping prefix.
func meanAbsDiff(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / float64(n)
}
