package skeleton

import (
	"fmt"
	"math"
)

// Preprocessing step names accepted by Pipeline.
const (
	StepAlignOrientation = "align_orientation"
	StepNormalizeLengths = "normalize_lengths"
)

// directedBones is the BODY_25 skeleton as a directed tree rooted at the mid
// hip (8), ordered inner to outer so parents are resolved before children.
var directedBones = [][2]int{
	{8, 1},
	{1, 0},
	{0, 15}, {15, 17},
	{0, 16}, {16, 18},
	{1, 2}, {2, 3}, {3, 4},
	{1, 5}, {5, 6}, {6, 7},
	{8, 9}, {9, 10}, {10, 11}, {11, 24}, {11, 22}, {22, 23},
	{8, 12}, {12, 13}, {13, 14}, {14, 21}, {14, 19}, {19, 20},
}

// AlignOrientation rotates and translates a sequence into the canonical
// capture pose:
//
//  1. the frame-0 pelvis vector (left hip minus right hip) is rotated about Y
//     so its ground projection points along +Z,
//  2. if the frame-0 right foot (ankle to big toe) then points along -X the
//     whole sequence is rotated a further 180 degrees,
//  3. the sequence is translated so the frame-0 mid hip sits on the Y axis.
//
// Degenerate frame-0 joints (NaN or zero-length vectors) propagate NaN
// through the transform rather than failing.
func AlignOrientation(seq Sequence) (Sequence, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("align orientation: %w", ErrEmptySequence)
	}
	out := seq.Clone()

	pelvis := out[0][JointLHip].Sub(out[0][JointRHip])
	proj := Vec3{pelvis[0], 0, pelvis[2]}.Unit()

	target := Vec3{0, 0, 1}
	angle := math.Acos(ClipUnit(proj.Dot(target)))
	if proj.Cross(target)[1] < 0 {
		angle = -angle
	}
	rotateY(out, angle)

	foot := out[0][JointRBigToe].Sub(out[0][JointRAnkle]).Unit()
	if foot[0] < 0 {
		rotateY(out, math.Pi)
	}

	offset := out[0][JointMidHip]
	offset[1] = 0
	for _, f := range out {
		for j := range f {
			f[j] = f[j].Sub(offset)
		}
	}
	return out, nil
}

// rotateY rotates every joint of every frame about the Y axis in place.
func rotateY(seq Sequence, angle float64) {
	sin, cos := math.Sincos(angle)
	for _, f := range seq {
		for j, p := range f {
			f[j] = Vec3{cos*p[0] + sin*p[2], p[1], -sin*p[0] + cos*p[2]}
		}
	}
}

// NormalizeOption tunes NormalizeLengths.
type NormalizeOption func(*normalizeConfig)

type normalizeConfig struct {
	averageLengths bool
}

// WithAverageLengths uses the coach's whole-clip average bone lengths instead
// of the per-frame lengths.
func WithAverageLengths() NormalizeOption {
	return func(c *normalizeConfig) {
		c.averageLengths = true
	}
}

// NormalizeLengths rescales every student bone to the coach's length while
// keeping the student's own bone directions and root position. Bones with
// NaN endpoints, zero direction, or no usable coach length are left as they
// are. Both sequences must have the same frame count.
func NormalizeLengths(student, coach Sequence, opts ...NormalizeOption) (Sequence, error) {
	var cfg normalizeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(student) != len(coach) {
		return nil, fmt.Errorf("%w: student has %d frames, coach has %d", ErrShapeMismatch, len(student), len(coach))
	}

	targets := targetLengths(coach, cfg.averageLengths)
	out := student.Clone()
	for f, frame := range out {
		for b, bone := range directedBones {
			parent, child := frame[bone[0]], frame[bone[1]]
			if parent.HasNaN() || child.HasNaN() {
				continue
			}
			dir, ok := safeUnit(child.Sub(parent))
			if !ok {
				continue
			}
			length := targets[f][b]
			if length <= 0 {
				continue
			}
			frame[bone[1]] = parent.Add(dir.Scale(length))
		}
	}
	return out, nil
}

// targetLengths returns the per-frame coach bone lengths, or the whole-clip
// averages broadcast to every frame. Unmeasurable bones get length 0.
func targetLengths(coach Sequence, average bool) [][]float64 {
	out := make([][]float64, len(coach))

	if average {
		avg := make([]float64, len(directedBones))
		for b, bone := range directedBones {
			var sum float64
			var n int
			for _, frame := range coach {
				if l, ok := boneLength(frame, bone); ok {
					sum += l
					n++
				}
			}
			if n > 0 {
				avg[b] = sum / float64(n)
			}
		}
		for f := range coach {
			out[f] = avg
		}
		return out
	}

	for f, frame := range coach {
		lengths := make([]float64, len(directedBones))
		for b, bone := range directedBones {
			if l, ok := boneLength(frame, bone); ok {
				lengths[b] = l
			}
		}
		out[f] = lengths
	}
	return out
}

// boneLength measures one bone in one frame. NaN endpoints are unmeasurable.
func boneLength(f Frame, bone [2]int) (float64, bool) {
	if f[bone[0]].HasNaN() || f[bone[1]].HasNaN() {
		return 0, false
	}
	return f[bone[1]].Sub(f[bone[0]]).Norm(), true
}

// safeUnit returns the unit vector of v, or false when v is NaN or too short
// to carry a direction.
func safeUnit(v Vec3) (Vec3, bool) {
	if v.HasNaN() {
		return Vec3{}, false
	}
	n := v.Norm()
	if n <= 1e-12 {
		return Vec3{}, false
	}
	return v.Scale(1 / n), true
}

// WarnFunc receives the name of a preprocessing step that was skipped
// because the pipeline does not recognize it.
type WarnFunc func(step string)

// PipelineOption tunes a Pipeline.
type PipelineOption func(*Pipeline)

// WithWarnFunc installs a callback for unrecognized step names. Without one,
// unknown steps are skipped silently.
func WithWarnFunc(fn WarnFunc) PipelineOption {
	return func(p *Pipeline) {
		if fn != nil {
			p.warn = fn
		}
	}
}

// Pipeline applies an ordered list of named preprocessing steps to a
// student/coach sequence pair.
type Pipeline struct {
	steps []string
	warn  WarnFunc
}

// NewPipeline creates a Pipeline for the given step names. Steps run in the
// order given; unknown names are reported through the warn callback and
// otherwise ignored.
func NewPipeline(steps []string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{steps: steps}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply runs the configured steps and returns the transformed pair. The
// inputs are never mutated.
func (p *Pipeline) Apply(student, coach Sequence) (Sequence, Sequence, error) {
	if err := student.Validate(); err != nil {
		return nil, nil, fmt.Errorf("student: %w", err)
	}
	if err := coach.Validate(); err != nil {
		return nil, nil, fmt.Errorf("coach: %w", err)
	}

	var err error
	for _, step := range p.steps {
		switch step {
		case StepAlignOrientation:
			if student, err = AlignOrientation(student); err != nil {
				return nil, nil, fmt.Errorf("student: %w", err)
			}
			if coach, err = AlignOrientation(coach); err != nil {
				return nil, nil, fmt.Errorf("coach: %w", err)
			}
		case StepNormalizeLengths:
			if student, err = NormalizeLengths(student, coach); err != nil {
				return nil, nil, err
			}
		default:
			if p.warn != nil {
				p.warn(step)
			}
		}
	}
	return student, coach, nil
}

// Validate checks that every frame carries the full BODY_25 joint set.
func (s Sequence) Validate() error {
	for i, f := range s {
		if len(f) != JointCount {
			return fmt.Errorf("%w: frame %d has %d joints", ErrJointCount, i, len(f))
		}
	}
	return nil
}
