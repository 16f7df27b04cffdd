package ruleset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Parse decodes and structurally validates a rule definition. Cross
// references between phases, rules, and conditions are checked separately by
// ValidateRefs.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	for i := range def.Phases {
		if strings.TrimSpace(def.Phases[i].ID) == "" {
			return nil, fmt.Errorf("%w: phase %d has no id", ErrInvalidDefinition, i)
		}
	}

	for i := range def.Rules {
		r := &def.Rules[i]
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidDefinition, i)
		}
		if strings.TrimSpace(r.PhaseID) == "" {
			return nil, fmt.Errorf("%w: rule %q has no phase", ErrInvalidDefinition, r.ID)
		}
		if unset(r.Scoring) {
			r.Scoring = DefaultScoring()
		}
	}
	return &def, nil
}

// ParseFile reads and parses a rule definition from disk.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// DefaultScoring is the policy applied when a rule declares none: full marks
// only when every condition passes.
func DefaultScoring() Scoring {
	return Scoring{Mode: ModeAllOrNothing, PassScore: 1.0, MaxScore: 1.0}
}

// unset reports whether a scoring block was absent from the JSON.
func unset(s Scoring) bool {
	return s.Mode == "" && s.PassScore == 0 && s.MaxScore == 0 && s.Weights == nil
}

// UnmarshalJSON fills scoring defaults for fields the document omits.
func (s *Scoring) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mode      string             `json:"mode"`
		PassScore *float64           `json:"pass_score"`
		MaxScore  *float64           `json:"max_score"`
		Weights   map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: score: %v", ErrInvalidDefinition, err)
	}
	s.Mode = raw.Mode
	if s.Mode == "" {
		s.Mode = ModeAllOrNothing
	}
	s.PassScore = 1.0
	if raw.PassScore != nil {
		s.PassScore = *raw.PassScore
	}
	s.MaxScore = 1.0
	if raw.MaxScore != nil {
		s.MaxScore = *raw.MaxScore
	}
	s.Weights = raw.Weights
	return nil
}

// UnmarshalJSON validates the event window shape, which a fixed-size array
// field would silently pad or truncate.
func (w *EventWindow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Event    string    `json:"event"`
		WindowMS []float64 `json:"window_ms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: event_window: %v", ErrInvalidDefinition, err)
	}
	if strings.TrimSpace(raw.Event) == "" {
		return fmt.Errorf("%w: event_window.event is required", ErrInvalidDefinition)
	}
	if len(raw.WindowMS) != 2 {
		return fmt.Errorf("%w: event_window.window_ms must be a 2-item array", ErrInvalidDefinition)
	}
	w.Event = raw.Event
	w.WindowMS = [2]float64{raw.WindowMS[0], raw.WindowMS[1]}
	return nil
}

// buildCondition turns the shared JSON surface into a typed condition,
// rejecting shapes the evaluator could only fail on later.
func buildCondition(raw rawCondition) (Condition, error) {
	out := Condition{ID: raw.ID, Kind: ConditionKind(raw.Type)}
	if strings.TrimSpace(raw.ID) == "" {
		return out, fmt.Errorf("%w: condition has no id", ErrInvalidCondition)
	}

	var tol float64
	if raw.Tolerance != nil {
		tol = *raw.Tolerance
	}

	switch out.Kind {
	case KindThreshold:
		if raw.Metric == "" {
			return out, condErr(raw.ID, "requires metric")
		}
		// Authors write threshold+between for an interval check; that is
		// a range condition.
		if raw.Op == opBetween {
			lower, upper, err := pairValue(raw.Value)
			if err != nil {
				return out, condErr(raw.ID, "op between requires value [lower, upper]")
			}
			out.Kind = KindRange
			out.Range = &RangeSpec{Metric: raw.Metric, Lower: lower, Upper: upper, Tolerance: tol, Abs: raw.Abs}
			return out, nil
		}
		op, err := parseOp(raw.Op)
		if err != nil {
			return out, condErr(raw.ID, fmt.Sprintf("unsupported op %q", raw.Op))
		}
		v, err := numberValue(raw.Value)
		if err != nil {
			return out, condErr(raw.ID, "requires a numeric value")
		}
		out.Threshold = &ThresholdSpec{Metric: raw.Metric, Op: op, Value: v, Tolerance: tol, Abs: raw.Abs}

	case KindRange:
		if raw.Metric == "" {
			return out, condErr(raw.ID, "requires metric")
		}
		lower, upper, err := pairValue(raw.Value)
		if err != nil {
			return out, condErr(raw.ID, "requires value [lower, upper]")
		}
		out.Range = &RangeSpec{Metric: raw.Metric, Lower: lower, Upper: upper, Tolerance: tol, Abs: raw.Abs}

	case KindBoolean:
		if raw.Metric == "" {
			return out, condErr(raw.ID, "requires metric")
		}
		switch BoolOp(raw.Op) {
		case BoolIsTrue, BoolIsFalse:
		default:
			return out, condErr(raw.ID, fmt.Sprintf("unsupported boolean op %q", raw.Op))
		}
		out.Boolean = &BooleanSpec{Metric: raw.Metric, Op: BoolOp(raw.Op)}

	case KindTrend:
		if raw.Metric == "" {
			return out, condErr(raw.ID, "requires metric")
		}
		switch TrendOp(raw.Op) {
		case TrendIncreasing, TrendDecreasing:
		default:
			return out, condErr(raw.ID, fmt.Sprintf("unsupported trend op %q", raw.Op))
		}
		spec := &TrendSpec{Metric: raw.Metric, Op: TrendOp(raw.Op)}
		if raw.WindowFrames != nil {
			if *raw.WindowFrames < 1 {
				return out, condErr(raw.ID, "window_frames must be >= 1")
			}
			spec.WindowFrames = *raw.WindowFrames
		}
		if raw.WindowMS != nil {
			if len(raw.WindowMS) != 2 {
				return out, condErr(raw.ID, "window_ms must be [pre, post]")
			}
			spec.WindowMS = &[2]float64{raw.WindowMS[0], raw.WindowMS[1]}
		}
		out.Trend = spec

	case KindAngle:
		if len(raw.Joints) != 2 && len(raw.Joints) != 3 {
			return out, condErr(raw.ID, "requires 2 or 3 joints")
		}
		op, err := parseOp(raw.Op)
		if err != nil {
			return out, condErr(raw.ID, fmt.Sprintf("unsupported op %q", raw.Op))
		}
		v, err := numberValue(raw.Value)
		if err != nil {
			return out, condErr(raw.ID, "requires a numeric value")
		}
		out.Angle = &AngleSpec{Joints: raw.Joints, Op: op, Value: v, Tolerance: tol, Abs: raw.Abs}

	case KindDistance:
		if len(raw.Pair) != 2 {
			return out, condErr(raw.ID, "requires exactly 2 joints in pair")
		}
		op, err := parseOp(raw.Op)
		if err != nil {
			return out, condErr(raw.ID, fmt.Sprintf("unsupported op %q", raw.Op))
		}
		v, err := numberValue(raw.Value)
		if err != nil {
			return out, condErr(raw.ID, "requires a numeric value")
		}
		out.Distance = &DistanceSpec{Pair: [2]int{raw.Pair[0], raw.Pair[1]}, Op: op, Value: v, Tolerance: tol, Abs: raw.Abs}

	case KindEventExists:
		event := strings.TrimSpace(raw.Event)
		if event == "" {
			return out, condErr(raw.ID, "requires a non-empty event")
		}
		out.Event = &EventSpec{Event: event}

	case KindComposite:
		switch Logic(raw.Logic) {
		case LogicAll, LogicAny, LogicNone:
		default:
			return out, condErr(raw.ID, fmt.Sprintf("unsupported logic %q", raw.Logic))
		}
		if len(raw.Conditions) == 0 {
			return out, condErr(raw.ID, "requires non-empty conditions")
		}
		out.Composite = &CompositeSpec{Logic: Logic(raw.Logic), Refs: raw.Conditions}

	default:
		return out, fmt.Errorf("%w: condition %q has unknown type %q", ErrInvalidCondition, raw.ID, raw.Type)
	}
	return out, nil
}

func condErr(id, msg string) error {
	return fmt.Errorf("%w: condition %q %s", ErrInvalidCondition, id, msg)
}

func numberValue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing value")
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func pairValue(raw json.RawMessage) (float64, float64, error) {
	if len(raw) == 0 {
		return 0, 0, fmt.Errorf("missing value")
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, 0, err
	}
	if len(v) != 2 {
		return 0, 0, fmt.Errorf("expected 2 items, got %d", len(v))
	}
	return v[0], v[1], nil
}
