// Package ruleset models the JSON rule definitions that drive motion
// analysis: phases of a motion, rules attached to those phases, and the
// conditions each rule checks.
//
// Conventions:
// - Parse produces a fully validated Definition; downstream code never
//   re-checks structural shape.
// - Schema v1 and v2 documents share this model; version differences only
//   affect plugin resolution and migration.
// - External errors must be wrapped via this package's sentinel errors.
package ruleset

import (
	"github.com/okian/kata/internal/domain/skeleton"
)

// Schema versions understood by this package.
const (
	SchemaV2 = "2.0.0"

	// DefaultMetricSpace is the metric namespace v2 profiles bind to.
	DefaultMetricSpace = "core_v1"

	// DefaultProfileID is the metric profile used when a v2 document does
	// not name one.
	DefaultProfileID = "generic_core"
)

// Definition is a parsed rule set.
type Definition struct {
	SchemaVersion string         `json:"schema_version"`
	RuleSetID     string         `json:"rule_set_id"`
	MetricProfile *MetricProfile `json:"metric_profile,omitempty"`

	// Sport fields identify the discipline on v1 documents and are carried
	// as context on v2 documents.
	Sport        string `json:"sport,omitempty"`
	SportVersion string `json:"sport_version,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
	Globals  map[string]any `json:"globals,omitempty"`
	Inputs   Inputs         `json:"inputs"`
	Phases   []Phase        `json:"phases"`
	Rules    []Rule         `json:"rules"`
}

// MetricProfile binds a v2 rule set to the plugin that computes its metrics.
type MetricProfile struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	MetricSpace string `json:"metric_space"`
	PresetID    string `json:"preset_id,omitempty"`
}

// Inputs describes how the skeleton pair must be prepared before any phase
// is evaluated.
type Inputs struct {
	Preprocess  []string `json:"preprocess,omitempty"`
	ExpectedFPS float64  `json:"expected_fps,omitempty"`
}

// Phase is one segment of the motion. Its frames come either from a fixed
// FrameRange or from an EventWindow anchored on a named capture event; when
// both are present the fixed range wins.
type Phase struct {
	ID             string               `json:"id"`
	Label          string               `json:"label,omitempty"`
	Description    string               `json:"description,omitempty"`
	LegacyStepName string               `json:"legacy_step_name,omitempty"`
	Important      *bool                `json:"is_important,omitempty"`
	FrameRange     *skeleton.FrameRange `json:"frame_range,omitempty"`
	EventWindow    *EventWindow         `json:"event_window,omitempty"`
}

// EventWindow derives a phase's frames from a capture event: the window in
// milliseconds is placed around the event frame and converted with the rule
// set's expected FPS.
type EventWindow struct {
	Event    string     `json:"event"`
	WindowMS [2]float64 `json:"window_ms"`
}

// Rule checks one aspect of one phase through an ordered condition list.
type Rule struct {
	ID         string      `json:"id"`
	PhaseID    string      `json:"phase"`
	Label      string      `json:"label,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Scoring    Scoring     `json:"score"`
	Feedback   []Feedback  `json:"feedback,omitempty"`
	Signal     *Signal     `json:"signal,omitempty"`
}

// Scoring aggregation modes.
const (
	ModeAllOrNothing = "all-or-nothing"
	ModeAverage      = "average"
	ModeWeighted     = "weighted"
)

// Scoring controls how a rule's condition outcomes fold into its score.
// Unknown modes degrade to pass_score-if-all-passed, so authoring typos
// lower scores instead of failing runs.
type Scoring struct {
	Mode      string             `json:"mode"`
	PassScore float64            `json:"pass_score"`
	MaxScore  float64            `json:"max_score"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// Feedback is a coaching message attached to condition failures.
type Feedback struct {
	ConditionIDs []string `json:"condition_ids"`
	Message      string   `json:"message"`
}

// SignalFrameRangeRef marks a signal that points at another phase's frames.
const SignalFrameRangeRef = "frame_range_ref"

// Signal annotates a rule with a pointer to related definition content, such
// as the phase whose frames a downstream consumer should highlight.
type Signal struct {
	Type string `json:"type"`
	Ref  string `json:"ref"`
}

// Phase returns the phase with the given id, or nil.
func (d *Definition) Phase(id string) *Phase {
	for i := range d.Phases {
		if d.Phases[i].ID == id {
			return &d.Phases[i]
		}
	}
	return nil
}

// RulesForPhase returns the rules bound to one phase in declaration order.
func (d *Definition) RulesForPhase(phaseID string) []Rule {
	var out []Rule
	for _, r := range d.Rules {
		if r.PhaseID == phaseID {
			out = append(out, r)
		}
	}
	return out
}

// Condition returns the condition with the given id within the rule, or nil.
func (r *Rule) Condition(id string) *Condition {
	for i := range r.Conditions {
		if r.Conditions[i].ID == id {
			return &r.Conditions[i]
		}
	}
	return nil
}
