package engine

import (
	"encoding/json"

	"github.com/okian/kata/internal/domain/eval"
	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
)

// MetaKey is the reserved result key carrying run-level timings.
const MetaKey = "_meta"

// RuleResult is the judgment of one rule over one phase.
type RuleResult struct {
	RuleID     string             `json:"rule_id"`
	Label      string             `json:"label,omitempty"`
	Passed     bool               `json:"passed"`
	Score      float64            `json:"score"`
	Conditions []eval.Result      `json:"conditions"`
	Feedback   []ruleset.Feedback `json:"feedback,omitempty"`
}

// PhaseResult is the judgment of one phase: per-rule outcomes, the legacy
// step score and classification, the metrics the plugin computed, and the
// frame range the phase resolved to.
type PhaseResult struct {
	Rules          map[string]RuleResult `json:"rules"`
	Score          int                   `json:"score"`
	Classification string                `json:"step_classification"`
	Metrics        map[string]float64    `json:"metrics"`
	FrameRange     skeleton.FrameRange   `json:"frame_range"`

	// TimingsSec is present only when the engine runs with WithTimings.
	TimingsSec map[string]float64 `json:"timings_sec,omitempty"`

	// ruleOrder preserves rule declaration order for consumers that render
	// results; the JSON object itself is unordered.
	ruleOrder []string
}

// RuleOrder returns the phase's rule ids in declaration order.
func (p PhaseResult) RuleOrder() []string {
	out := make([]string, len(p.ruleOrder))
	copy(out, p.ruleOrder)
	return out
}

// Meta carries run-level timings when profiling is enabled.
type Meta struct {
	TimingsSec map[string]float64 `json:"timings_sec"`
}

// Result maps phase ids to their judgments, in phase declaration order.
type Result struct {
	Phases map[string]PhaseResult
	Order  []string
	Meta   *Meta
}

// Phase returns one phase's judgment.
func (r Result) Phase(id string) (PhaseResult, bool) {
	p, ok := r.Phases[id]
	return p, ok
}

// MarshalJSON renders the phase-keyed object shape consumers expect, with
// the reserved _meta entry appended when timings were recorded.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Phases)+1)
	for id, p := range r.Phases {
		out[id] = p
	}
	if r.Meta != nil {
		out[MetaKey] = r.Meta
	}
	return json.Marshal(out)
}
