// Package generic implements the cross-sport metric profile over BODY_25
// captures. Every metric is a normalized student-versus-coach delta, so one
// rule set can serve any sport that compares two motions.
package generic

import (
	"math"

	"github.com/okian/kata/internal/domain/ruleset"
	"github.com/okian/kata/internal/domain/skeleton"
)

// Name is the profile id this plugin registers under.
const Name = "generic_core"

// eps keeps ratio denominators away from zero.
const eps = 1e-8

// CoreMetrics lists the metric ids of the profile. The *_series entries are
// per-frame series for trend conditions; their scalar means are also
// published under the same ids.
var CoreMetrics = []string{
	"cg_z_delta_mean",
	"cg_z_delta_series",
	"head_displacement_delta_mean",
	"head_displacement_delta_series",
	"shoulder_tilt_delta_mean",
	"hip_yaw_delta_mean",
	"root_speed_delta_mean",
	"root_speed_delta_series",
}

// Plugin computes the generic core metrics. It is stateless.
type Plugin struct{}

// New creates the generic core plugin.
func New() *Plugin {
	return &Plugin{}
}

// MetricSeries computes the per-frame series of the phase. With either side
// empty every series is empty.
func (p *Plugin) MetricSeries(_ string, student, coach skeleton.Sequence) (map[string][]float64, error) {
	if len(student) == 0 || len(coach) == 0 {
		return map[string][]float64{
			"cg_z_delta_series":              {},
			"head_displacement_delta_series": {},
			"root_speed_delta_series":        {},
		}, nil
	}

	return map[string][]float64{
		"cg_z_delta_series":              ratioDeltaSeries(meanZSeries(student), meanZSeries(coach)),
		"head_displacement_delta_series": ratioDeltaSeries(displacementSeries(student, skeleton.JointNeck), displacementSeries(coach, skeleton.JointNeck)),
		"root_speed_delta_series":        absDeltaSeries(speedSeries(student, skeleton.JointMidHip), speedSeries(coach, skeleton.JointMidHip)),
	}, nil
}

// Metrics computes the scalar metrics of the phase. Each series also appears
// under its own id collapsed to a mean, which older rule sets rely on.
func (p *Plugin) Metrics(phaseID string, student, coach skeleton.Sequence) (map[string]float64, error) {
	series, err := p.MetricSeries(phaseID, student, coach)
	if err != nil {
		return nil, err
	}

	shoulderDelta := axisAngleDeltaSeries(student, coach, skeleton.JointRShoulder, skeleton.JointLShoulder)
	hipDelta := axisAngleDeltaSeries(student, coach, skeleton.JointLHip, skeleton.JointRHip)

	return map[string]float64{
		"cg_z_delta_mean":                seriesMean(series["cg_z_delta_series"]),
		"head_displacement_delta_mean":   seriesMean(series["head_displacement_delta_series"]),
		"shoulder_tilt_delta_mean":       seriesMean(shoulderDelta),
		"hip_yaw_delta_mean":             seriesMean(hipDelta),
		"root_speed_delta_mean":          seriesMean(series["root_speed_delta_series"]),
		"cg_z_delta_series":              seriesMean(series["cg_z_delta_series"]),
		"head_displacement_delta_series": seriesMean(series["head_displacement_delta_series"]),
		"root_speed_delta_series":        seriesMean(series["root_speed_delta_series"]),
	}, nil
}

// MetricsByPhase reports every core metric as available in any phase.
func (p *Plugin) MetricsByPhase() map[string][]string {
	metrics := make([]string, len(CoreMetrics))
	copy(metrics, CoreMetrics)
	return map[string][]string{"*": metrics}
}

// ConditionTypes lists every condition kind; the generic profile supports
// them all.
func (p *Plugin) ConditionTypes() []ruleset.ConditionKind {
	return []ruleset.ConditionKind{
		ruleset.KindThreshold,
		ruleset.KindRange,
		ruleset.KindBoolean,
		ruleset.KindEventExists,
		ruleset.KindComposite,
		ruleset.KindTrend,
		ruleset.KindAngle,
		ruleset.KindDistance,
	}
}

// meanZSeries is the per-frame mean depth over all joints.
func meanZSeries(seq skeleton.Sequence) []float64 {
	out := make([]float64, len(seq))
	for i, f := range seq {
		var sum float64
		for _, j := range f {
			sum += j.Z()
		}
		out[i] = sum / float64(len(f))
	}
	return out
}

// displacementSeries is the per-frame distance of a joint from its first
// position.
func displacementSeries(seq skeleton.Sequence, joint int) []float64 {
	out := make([]float64, len(seq))
	origin := seq[0][joint]
	for i, f := range seq {
		out[i] = f[joint].Sub(origin).Norm()
	}
	return out
}

// speedSeries is the per-frame travel of a joint, with a leading zero so the
// series stays frame-aligned.
func speedSeries(seq skeleton.Sequence, joint int) []float64 {
	out := make([]float64, len(seq))
	for i := 1; i < len(seq); i++ {
		out[i] = seq[i][joint].Sub(seq[i-1][joint]).Norm()
	}
	return out
}

// ratioDeltaSeries is |student-coach| normalized by the coach magnitude.
func ratioDeltaSeries(student, coach []float64) []float64 {
	n := min(len(student), len(coach))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Abs(student[i]-coach[i]) / math.Max(math.Abs(coach[i]), eps)
	}
	return out
}

// absDeltaSeries is the plain per-frame |student-coach|.
func absDeltaSeries(student, coach []float64) []float64 {
	n := min(len(student), len(coach))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Abs(student[i] - coach[i])
	}
	return out
}

// axisAngleDeltaSeries is the per-frame |angle(student)-angle(coach)| of the
// joint-a-to-joint-b segment measured against +X on the XZ plane, degrees.
func axisAngleDeltaSeries(student, coach skeleton.Sequence, a, b int) []float64 {
	n := min(len(student), len(coach))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		stu := student[i][a].Sub(student[i][b])
		coa := coach[i][a].Sub(coach[i][b])
		out[i] = math.Abs(axisAngleXZ(stu) - axisAngleXZ(coa))
	}
	return out
}

func axisAngleXZ(v skeleton.Vec3) float64 {
	return skeleton.Degrees(math.Atan2(v.Z(), v.X()))
}

func seriesMean(s []float64) float64 {
	if len(s) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
