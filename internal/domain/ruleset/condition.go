package ruleset

import (
	"encoding/json"
	"fmt"
)

// ConditionKind names the condition families the evaluator understands.
type ConditionKind string

// Condition kinds.
const (
	KindThreshold   ConditionKind = "threshold"
	KindRange       ConditionKind = "range"
	KindBoolean     ConditionKind = "boolean"
	KindTrend       ConditionKind = "trend"
	KindAngle       ConditionKind = "angle"
	KindDistance    ConditionKind = "distance"
	KindEventExists ConditionKind = "event_exists"
	KindComposite   ConditionKind = "composite"
)

// Op is a scalar comparison operator.
type Op string

// Scalar comparison operators.
const (
	OpGTE Op = "gte"
	OpGT  Op = "gt"
	OpLTE Op = "lte"
	OpLT  Op = "lt"
	OpEQ  Op = "eq"
	OpNEQ Op = "neq"
)

// opBetween is accepted on threshold-shaped input and rewritten to a range
// condition during parsing.
const opBetween = "between"

func parseOp(s string) (Op, error) {
	switch Op(s) {
	case OpGTE, OpGT, OpLTE, OpLT, OpEQ, OpNEQ:
		return Op(s), nil
	}
	return "", fmt.Errorf("%w: unsupported op %q", ErrInvalidCondition, s)
}

// BoolOp tests the truthiness of a metric.
type BoolOp string

// Boolean operators.
const (
	BoolIsTrue  BoolOp = "is_true"
	BoolIsFalse BoolOp = "is_false"
)

// TrendOp names the direction a trend condition expects.
type TrendOp string

// Trend operators.
const (
	TrendIncreasing TrendOp = "increasing"
	TrendDecreasing TrendOp = "decreasing"
)

// Logic combines referenced condition outcomes in a composite condition.
type Logic string

// Composite logic operators.
const (
	LogicAll  Logic = "all"
	LogicAny  Logic = "any"
	LogicNone Logic = "none"
)

// Condition is one check inside a rule. Kind selects which spec field is
// populated; exactly one is non-nil after parsing.
type Condition struct {
	ID   string
	Kind ConditionKind

	Threshold *ThresholdSpec
	Range     *RangeSpec
	Boolean   *BooleanSpec
	Trend     *TrendSpec
	Angle     *AngleSpec
	Distance  *DistanceSpec
	Event     *EventSpec
	Composite *CompositeSpec
}

// ThresholdSpec compares a scalar metric against a target value. Tolerance
// widens the acceptance region in the direction of the operator; Abs
// compares the magnitude while the reported value stays signed.
type ThresholdSpec struct {
	Metric    string
	Op        Op
	Value     float64
	Tolerance float64
	Abs       bool
}

// RangeSpec checks that a scalar metric lies in [Lower-Tolerance,
// Upper+Tolerance].
type RangeSpec struct {
	Metric    string
	Lower     float64
	Upper     float64
	Tolerance float64
	Abs       bool
}

// BooleanSpec tests a metric's truthiness: any non-zero value is true.
type BooleanSpec struct {
	Metric string
	Op     BoolOp
}

// TrendSpec checks the direction of a metric series over an optional tail
// window. WindowFrames keeps the last N samples; WindowMS derives the sample
// count from a millisecond span and the expected FPS. Both may apply, in
// that order.
type TrendSpec struct {
	Metric       string
	Op           TrendOp
	WindowFrames int
	WindowMS     *[2]float64
}

// AngleSpec measures a joint angle per frame and compares the representative
// value like a threshold. Two joints measure against the +X axis; three
// measure the angle at the middle joint. With coach data present the
// representative value is the mean absolute student/coach difference.
type AngleSpec struct {
	Joints    []int
	Op        Op
	Value     float64
	Tolerance float64
	Abs       bool
}

// DistanceSpec measures the per-frame distance between a joint pair and
// compares the representative value like a threshold.
type DistanceSpec struct {
	Pair      [2]int
	Op        Op
	Value     float64
	Tolerance float64
	Abs       bool
}

// EventSpec passes when a named capture event is present in the evaluation
// context.
type EventSpec struct {
	Event string
}

// CompositeSpec folds previously evaluated sibling conditions with Logic.
type CompositeSpec struct {
	Logic Logic
	Refs  []string
}

// rawCondition is the JSON surface shared by every condition kind.
type rawCondition struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	Metric       string          `json:"metric"`
	Op           string          `json:"op"`
	Value        json.RawMessage `json:"value"`
	Tolerance    *float64        `json:"tolerance"`
	Abs          bool            `json:"abs_val"`
	WindowFrames *int            `json:"window_frames"`
	WindowMS     []float64       `json:"window_ms"`
	Joints       []int           `json:"joints"`
	Pair         []int           `json:"pair"`
	Event        string          `json:"event"`
	Logic        string          `json:"logic"`
	Conditions   []string        `json:"conditions"`
}

// MarshalJSON renders the condition back to its JSON surface.
func (c Condition) MarshalJSON() ([]byte, error) {
	raw := rawCondition{Type: string(c.Kind), ID: c.ID}
	switch c.Kind {
	case KindThreshold:
		raw.Metric = c.Threshold.Metric
		raw.Op = string(c.Threshold.Op)
		raw.Value = mustNumber(c.Threshold.Value)
		raw.Tolerance = optFloat(c.Threshold.Tolerance)
		raw.Abs = c.Threshold.Abs
	case KindRange:
		raw.Metric = c.Range.Metric
		raw.Value = mustPair(c.Range.Lower, c.Range.Upper)
		raw.Tolerance = optFloat(c.Range.Tolerance)
		raw.Abs = c.Range.Abs
	case KindBoolean:
		raw.Metric = c.Boolean.Metric
		raw.Op = string(c.Boolean.Op)
	case KindTrend:
		raw.Metric = c.Trend.Metric
		raw.Op = string(c.Trend.Op)
		if c.Trend.WindowFrames > 0 {
			wf := c.Trend.WindowFrames
			raw.WindowFrames = &wf
		}
		if c.Trend.WindowMS != nil {
			raw.WindowMS = c.Trend.WindowMS[:]
		}
	case KindAngle:
		raw.Joints = c.Angle.Joints
		raw.Op = string(c.Angle.Op)
		raw.Value = mustNumber(c.Angle.Value)
		raw.Tolerance = optFloat(c.Angle.Tolerance)
		raw.Abs = c.Angle.Abs
	case KindDistance:
		raw.Pair = c.Distance.Pair[:]
		raw.Op = string(c.Distance.Op)
		raw.Value = mustNumber(c.Distance.Value)
		raw.Tolerance = optFloat(c.Distance.Tolerance)
		raw.Abs = c.Distance.Abs
	case KindEventExists:
		raw.Event = c.Event.Event
	case KindComposite:
		raw.Logic = string(c.Composite.Logic)
		raw.Conditions = c.Composite.Refs
	}
	return json.Marshal(raw)
}

// UnmarshalJSON parses and validates one condition.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw rawCondition
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	parsed, err := buildCondition(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func mustNumber(v float64) json.RawMessage {
	out, _ := json.Marshal(v)
	return out
}

func mustPair(lo, hi float64) json.RawMessage {
	out, _ := json.Marshal([2]float64{lo, hi})
	return out
}

func optFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
