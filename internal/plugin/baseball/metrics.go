package baseball

import (
	"math"

	"github.com/okian/kata/internal/domain/skeleton"
)

// Denominator floors and banding constants from the legacy scoring sheet.
const (
	stanceDenomFloor = 1e-8
	denomFloor       = 1e-5
	cgEndTolerance   = 0.04
	strideSlack      = 0.2
	cgEndDiffSlack   = 0.08
	hipYawClampDeg   = 90.0
)

// Class bands shared by the *_class metrics.
const (
	classMatch = 0.0
	classClose = 0.5
	classFar   = 5.0
)

// stanceAngleDiffRatio compares the lean of the mean torso (neck to mid hip)
// against straight down.
func stanceAngleDiffRatio(student, coach skeleton.Sequence) float64 {
	down := skeleton.Vec3{0, -1, 0}
	stuVec := skeleton.MeanJoint(student, skeleton.JointNeck).Sub(skeleton.MeanJoint(student, skeleton.JointMidHip))
	coaVec := skeleton.MeanJoint(coach, skeleton.JointNeck).Sub(skeleton.MeanJoint(coach, skeleton.JointMidHip))
	stuAngle := skeleton.Angle(stuVec, down)
	coaAngle := skeleton.Angle(coaVec, down)
	return math.Abs(coaAngle-stuAngle) / math.Max(math.Abs(coaAngle), stanceDenomFloor)
}

// cgAvgOffsets is the whole-motion center-of-gravity depth offset from the
// ankle midline, per person, measured on the mean pose.
func cgAvgOffsets(student, coach skeleton.Sequence) (float64, float64) {
	return skeleton.RelativeCGOffset(skeleton.MeanPose(student), 2),
		skeleton.RelativeCGOffset(skeleton.MeanPose(coach), 2)
}

// cgEndOffsets is the same offset measured on the final frame.
func cgEndOffsets(student, coach skeleton.Sequence) (float64, float64) {
	return skeleton.RelativeCGOffset(student[len(student)-1], 2),
		skeleton.RelativeCGOffset(coach[len(coach)-1], 2)
}

// backRatio compares how far behind the ankles the student keeps their
// weight relative to the coach: under 1 means not as far back, 0 means at
// least as far.
func backRatio(stuOffset, coachOffset float64) float64 {
	if math.Abs(stuOffset) < math.Abs(coachOffset) {
		return math.Abs(stuOffset) / math.Abs(coachOffset)
	}
	return 0.0
}

// headMoveDiffRatio compares total neck travel between first and last frame.
func headMoveDiffRatio(student, coach skeleton.Sequence) float64 {
	stuMove := student[len(student)-1][skeleton.JointNeck].Sub(student[0][skeleton.JointNeck]).Norm()
	coaMove := coach[len(coach)-1][skeleton.JointNeck].Sub(coach[0][skeleton.JointNeck]).Norm()
	return math.Abs(stuMove-coaMove) / math.Max(coaMove, denomFloor)
}

// strideZClass bands the depth of the left-ankle stride. Striding no deeper
// than the coach is a match; up to 20% over is close; beyond that is far.
func strideZClass(student, coach skeleton.Sequence) float64 {
	stuStride := student[len(student)-1][skeleton.JointLAnkle].Z() - student[0][skeleton.JointLAnkle].Z()
	coaStride := coach[len(coach)-1][skeleton.JointLAnkle].Z() - coach[0][skeleton.JointLAnkle].Z()
	if stuStride <= coaStride {
		return classMatch
	}
	if math.Abs(stuStride-coaStride) <= strideSlack*math.Abs(coaStride) {
		return classClose
	}
	return classFar
}

// shoulderXZAngleDiffRatio compares the final-frame shoulder line tilt out
// of the ground plane.
func shoulderXZAngleDiffRatio(student, coach skeleton.Sequence) float64 {
	stuVec := student[len(student)-1][skeleton.JointRShoulder].Sub(student[len(student)-1][skeleton.JointLShoulder])
	coaVec := coach[len(coach)-1][skeleton.JointRShoulder].Sub(coach[len(coach)-1][skeleton.JointLShoulder])
	stuAngle := skeleton.AngleWithXZPlane(stuVec)
	coaAngle := skeleton.AngleWithXZPlane(coaVec)
	return math.Abs(stuAngle-coaAngle) / math.Max(math.Abs(coaAngle), denomFloor)
}

// cgZEndDiffClass bands how much less forward the student finishes than the
// coach.
func cgZEndDiffClass(student, coach skeleton.Sequence) float64 {
	stuOffset, coaOffset := cgEndOffsets(student, coach)
	if stuOffset >= coaOffset {
		return classMatch
	}
	if coaOffset-stuOffset <= cgEndDiffSlack {
		return classClose
	}
	return classFar
}

// shoulderHeightDiffs is the mean height gap between the right and left
// wrist, per person. Wrist heights stand in for the shoulder line in the
// legacy scoring sheet.
func shoulderHeightDiffs(student, coach skeleton.Sequence) (float64, float64) {
	stu := skeleton.MeanJoint(student, skeleton.JointRWrist).Y() - skeleton.MeanJoint(student, skeleton.JointLWrist).Y()
	coa := skeleton.MeanJoint(coach, skeleton.JointRWrist).Y() - skeleton.MeanJoint(coach, skeleton.JointLWrist).Y()
	return stu, coa
}

// shoulderHeightDrop measures how far the lead side dips below level, zero
// when it stays level or above.
func shoulderHeightDrop(stuDiff float64) float64 {
	if stuDiff < 0 {
		return math.Abs(stuDiff)
	}
	return 0.0
}

// shoulderHeightLevelClass flags a level but shallower-than-coach shoulder
// line as close.
func shoulderHeightLevelClass(stuDiff, coaDiff float64) float64 {
	if stuDiff >= 0 && stuDiff < coaDiff {
		return classClose
	}
	return classMatch
}

// cgZStdDiffRatio compares how much the center of gravity depth wobbles over
// the phase.
func cgZStdDiffRatio(student, coach skeleton.Sequence) float64 {
	stdStu := populationStd(cgZTrack(student))
	stdCoa := populationStd(cgZTrack(coach))
	return math.Abs(stdStu-stdCoa) / math.Max(stdCoa, denomFloor)
}

// hipYawAngleDiffRatio compares the final-frame hip line rotation against
// facing forward. A student hip angle past 90 degrees reads as fully open
// and the ratio collapses to zero.
func hipYawAngleDiffRatio(student, coach skeleton.Sequence) float64 {
	forward := skeleton.Vec3{0, 0, 1}
	stuVec := student[len(student)-1][skeleton.JointLHip].Sub(student[len(student)-1][skeleton.JointRHip])
	coaVec := coach[len(coach)-1][skeleton.JointLHip].Sub(coach[len(coach)-1][skeleton.JointRHip])
	stuAngle := skeleton.Angle(stuVec, forward)
	coaAngle := skeleton.Angle(coaVec, forward)
	val := math.Abs(stuAngle-coaAngle) / math.Max(math.Abs(coaAngle), denomFloor)
	if stuAngle > hipYawClampDeg {
		val = 0.0
	}
	return val
}

func cgZTrack(seq skeleton.Sequence) []float64 {
	out := make([]float64, len(seq))
	for i, f := range seq {
		out[i] = skeleton.CenterOfGravity(f).Z()
	}
	return out
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

func boolMetric(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
