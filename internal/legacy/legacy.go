// Package legacy projects engine results into the older step-keyed report
// shape that pre-rule-set consumers still read: human-readable verdict
// strings per rule, one block per named step.
package legacy

import (
	"fmt"
	"strings"

	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
	"github.com/okian/kata/internal/engine"
)

// Verdict strings the old report format uses per rule.
const (
	VerdictCorrect      = "Correct"
	VerdictTooDifferent = "Too different"
	VerdictUnknown      = "Unknown"
)

// Reserved keys inside one step block. Everything else in the block is a
// rule label mapping to a verdict string.
const (
	KeyScore          = "Score"
	KeyClassification = "StepClassification"
	KeyFeedback       = "Feedback"
	KeyTitle          = "StepTitle"
	KeyDescription    = "StepDescription"
	KeyImportant      = "IsImportant"
)

// StepRanges maps legacy step names to their expanded frame index lists,
// alongside the phase-id-to-step-name projection that built it.
type StepRanges struct {
	Ranges   map[string]skeleton.FrameRange `json:"ranges"`
	PhaseMap map[string]string              `json:"phase_map"`
}

// BuildStepRanges derives the legacy step table from a definition. Steps
// keep their declared legacy name or get a positional Step<N> name, N being
// the 1-based position among all phases. Only phases with an explicit frame
// range enter the table and the phase map; event-window phases have no
// static frames to report, so the legacy report keys them by raw phase id.
func BuildStepRanges(def *ruleset.Definition) StepRanges {
	out := StepRanges{
		Ranges:   make(map[string]skeleton.FrameRange),
		PhaseMap: make(map[string]string, len(def.Phases)),
	}
	for i := range def.Phases {
		phase := &def.Phases[i]
		if phase.FrameRange == nil {
			continue
		}
		name := phase.LegacyStepName
		if name == "" {
			name = fmt.Sprintf("Step%d", i+1)
		}
		out.PhaseMap[phase.ID] = name
		out.Ranges[name] = *phase.FrameRange
	}
	return out
}

// Step is one step's block in the legacy report: rule labels mapping to
// verdict strings plus the reserved score/classification/feedback keys.
type Step map[string]any

// Report is the full legacy document, keyed by step name.
type Report map[string]Step

// ToReport renders engine results in the legacy shape. Rules declared for a
// phase but absent from its result render as Unknown; everything the engine
// judged renders as Correct or Too different.
func ToReport(res engine.Result, def *ruleset.Definition, phaseMap map[string]string) Report {
	out := make(Report, len(res.Phases))
	for _, phaseID := range res.Order {
		phaseRes := res.Phases[phaseID]
		stepName, ok := phaseMap[phaseID]
		if !ok {
			stepName = phaseID
		}

		step := Step{
			KeyScore:          phaseRes.Score,
			KeyClassification: phaseRes.Classification,
		}

		var feedback []string
		for _, rule := range def.RulesForPhase(phaseID) {
			label := rule.Label
			if label == "" {
				label = rule.ID
			}
			rr, judged := phaseRes.Rules[rule.ID]
			switch {
			case !judged:
				step[label] = VerdictUnknown
			case rr.Passed:
				step[label] = VerdictCorrect
			default:
				step[label] = VerdictTooDifferent
				for _, fb := range rr.Feedback {
					feedback = append(feedback, fb.Message)
				}
			}
		}
		if len(feedback) > 0 {
			step[KeyFeedback] = strings.Join(feedback, " ")
		}

		if phase := def.Phase(phaseID); phase != nil {
			if phase.Label != "" {
				step[KeyTitle] = phase.Label
			}
			if phase.Description != "" {
				step[KeyDescription] = phase.Description
			}
			if phase.Important != nil {
				step[KeyImportant] = *phase.Important
			}
		}

		out[stepName] = step
	}
	return out
}
