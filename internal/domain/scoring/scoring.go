// Package scoring turns condition outcomes into rule scores, selects the
// coaching feedback to surface, and rolls rule verdicts up to step level.
package scoring

import (
	"github.com/okian/kata/internal/domain/eval"
	"github.com/okian/kata/internal/domain/ruleset"
)

// Step classifications reported alongside the step score.
const (
	ClassCorrect = "correct"
	ClassWrong   = "wrong"
	ClassMid     = "mid"
)

// Legacy step marks. The original color scale mapped green to 100, yellow
// to 60 and red to 30; rules only emit pass/fail, so pass takes the green
// mark and fail the red one.
const (
	passMark       = 100
	failMark       = 30
	emptyStepScore = 100
)

// Aggregate computes a rule score from its condition outcomes under the
// rule's scoring policy. A rule with no conditions earns its full score.
func Aggregate(policy ruleset.Scoring, outcomes []eval.Result) float64 {
	mode := policy.Mode
	if mode == "" {
		mode = ruleset.ModeAllOrNothing
	}

	if len(outcomes) == 0 {
		return policy.MaxScore
	}

	switch mode {
	case ruleset.ModeAllOrNothing:
		if allPassed(outcomes) {
			return policy.MaxScore
		}
		return 0.0

	case ruleset.ModeAverage:
		return policy.MaxScore * float64(countPassed(outcomes)) / float64(len(outcomes))

	case ruleset.ModeWeighted:
		totalWeight := 0.0
		for _, w := range policy.Weights {
			totalWeight += w
		}
		if totalWeight == 0 {
			totalWeight = 1.0
		}
		passedWeight := 0.0
		for _, o := range outcomes {
			if o.Passed {
				passedWeight += policy.Weights[o.ID]
			}
		}
		return policy.MaxScore * passedWeight / totalWeight
	}

	// Unknown modes degrade to a strict pass/fail on the pass score.
	if allPassed(outcomes) {
		return policy.PassScore
	}
	return 0.0
}

// SelectFeedback returns the feedback entries that reference at least one
// failed condition, in rule order.
func SelectFeedback(entries []ruleset.Feedback, outcomes []eval.Result) []ruleset.Feedback {
	failed := make(map[string]bool)
	for _, o := range outcomes {
		if !o.Passed {
			failed[o.ID] = true
		}
	}

	var selected []ruleset.Feedback
	for _, fb := range entries {
		for _, id := range fb.ConditionIDs {
			if failed[id] {
				selected = append(selected, fb)
				break
			}
		}
	}
	return selected
}

// ClassifyStep labels a step from its rule verdicts: correct when every
// rule passed, wrong when every rule failed, mid otherwise. A step with no
// rules is mid.
func ClassifyStep(passed []bool) string {
	if len(passed) == 0 {
		return ClassMid
	}
	all, none := true, true
	for _, p := range passed {
		if p {
			none = false
		} else {
			all = false
		}
	}
	switch {
	case all:
		return ClassCorrect
	case none:
		return ClassWrong
	}
	return ClassMid
}

// StepScore averages the legacy marks of a step's rule verdicts, truncating
// to an integer percentage. A step with no rules scores full marks.
func StepScore(passed []bool) int {
	if len(passed) == 0 {
		return emptyStepScore
	}
	sum := 0
	for _, p := range passed {
		if p {
			sum += passMark
		} else {
			sum += failMark
		}
	}
	return sum / len(passed)
}

func allPassed(outcomes []eval.Result) bool {
	for _, o := range outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

func countPassed(outcomes []eval.Result) int {
	n := 0
	for _, o := range outcomes {
		if o.Passed {
			n++
		}
	}
	return n
}
