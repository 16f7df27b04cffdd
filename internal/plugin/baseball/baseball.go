// Package baseball implements the batting preset profile. Its metrics mirror
// the four-step legacy scoring sheet for a batting swing; value channels that
// used to mix a ratio with a flag magnitude are split into a ratio metric
// plus a boolean companion.
package baseball

import (
	"fmt"

	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
)

// Name is the profile id this plugin registers under.
const Name = "baseball"

// Plugin computes the batting metrics. It is stateless.
type Plugin struct{}

// New creates the baseball plugin.
func New() *Plugin {
	return &Plugin{}
}

// Metrics computes the scalar metrics of one batting step.
func (p *Plugin) Metrics(phaseID string, student, coach skeleton.Sequence) (map[string]float64, error) {
	if len(student) == 0 || len(coach) == 0 {
		return nil, fmt.Errorf("%w: phase %q", ErrEmptyPhase, phaseID)
	}

	switch phaseID {
	case "step1":
		stuOffset, coaOffset := cgAvgOffsets(student, coach)
		return map[string]float64{
			"stance_angle_diff_ratio": stanceAngleDiffRatio(student, coach),
			"cg_z_avg_ratio":          backRatio(stuOffset, coaOffset),
			"cg_z_avg_stays_back":     boolMetric(stuOffset < 0),
		}, nil

	case "step2":
		stuOffset, coaOffset := cgEndOffsets(student, coach)
		return map[string]float64{
			"head_move_diff_ratio":         headMoveDiffRatio(student, coach),
			"stride_z_class":               strideZClass(student, coach),
			"cg_z_end_ratio":               backRatio(stuOffset, coaOffset),
			"cg_z_end_stays_back":          boolMetric(stuOffset <= cgEndTolerance),
			"shoulder_xz_angle_diff_ratio": shoulderXZAngleDiffRatio(student, coach),
		}, nil

	case "step3":
		stuDiff, coaDiff := shoulderHeightDiffs(student, coach)
		return map[string]float64{
			"cg_z_end_diff_class":         cgZEndDiffClass(student, coach),
			"shoulder_height_drop":        shoulderHeightDrop(stuDiff),
			"shoulder_height_level_class": shoulderHeightLevelClass(stuDiff, coaDiff),
		}, nil

	case "step4":
		return map[string]float64{
			"cg_z_std_diff_ratio":      cgZStdDiffRatio(student, coach),
			"hip_yaw_angle_diff_ratio": hipYawAngleDiffRatio(student, coach),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phaseID)
}

// MetricsByPhase lists the metric ids per batting step.
func (p *Plugin) MetricsByPhase() map[string][]string {
	return map[string][]string{
		"step1": {
			"stance_angle_diff_ratio",
			"cg_z_avg_ratio",
			"cg_z_avg_stays_back",
		},
		"step2": {
			"head_move_diff_ratio",
			"stride_z_class",
			"cg_z_end_ratio",
			"cg_z_end_stays_back",
			"shoulder_xz_angle_diff_ratio",
		},
		"step3": {
			"cg_z_end_diff_class",
			"shoulder_height_drop",
			"shoulder_height_level_class",
		},
		"step4": {
			"cg_z_std_diff_ratio",
			"hip_yaw_angle_diff_ratio",
		},
	}
}

// ConditionTypes lists the condition kinds the batting rules use.
func (p *Plugin) ConditionTypes() []ruleset.ConditionKind {
	return []ruleset.ConditionKind{
		ruleset.KindThreshold,
		ruleset.KindRange,
		ruleset.KindBoolean,
		ruleset.KindComposite,
	}
}
