// Package skeleton models OpenPose BODY_25 motion capture sequences.
//
// A Sequence is an ordered list of frames; each frame holds 25 joint
// positions in 3D. Missing joints are carried as NaN components and are
// treated as "no data" everywhere, never as zero.
//
// Conventions:
// - All transforms return new sequences; inputs are never mutated.
// - External errors must be wrapped via this package's sentinel errors.
package skeleton

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// JointCount is the number of joints in the BODY_25 layout.
const JointCount = 25

// BODY_25 joint indices referenced by metrics and preprocessing.
const (
	JointNose      = 0
	JointNeck      = 1
	JointRShoulder = 2
	JointRElbow    = 3
	JointRWrist    = 4
	JointLShoulder = 5
	JointLElbow    = 6
	JointLWrist    = 7
	JointMidHip    = 8
	JointRHip      = 9
	JointRKnee     = 10
	JointRAnkle    = 11
	JointLHip      = 12
	JointLKnee     = 13
	JointLAnkle    = 14
	JointRBigToe   = 22
)

// Frame is one captured pose: JointCount joint positions.
type Frame []Vec3

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Sequence is an ordered list of frames.
type Sequence []Frame

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	for i, f := range s {
		out[i] = f.Clone()
	}
	return out
}

// Extract returns the subsequence covering r. The range must be valid for s.
func (s Sequence) Extract(r FrameRange) (Sequence, error) {
	if r.Start < 0 || r.End >= len(s) || r.Start > r.End {
		return nil, fmt.Errorf("%w: [%d,%d] of %d frames", ErrFrameRange, r.Start, r.End, len(s))
	}
	out := make(Sequence, 0, r.Len())
	for i := r.Start; i <= r.End; i++ {
		out = append(out, s[i])
	}
	return out, nil
}

// FrameRange is an inclusive [Start, End] frame index interval.
//
// On the wire it is rendered as the full expanded index list, which is the
// shape the analysis artifacts and legacy step tables use.
type FrameRange struct {
	Start int
	End   int
}

// Len returns the number of frames covered.
func (r FrameRange) Len() int { return r.End - r.Start + 1 }

// Indices expands the range to the full inclusive index list.
func (r FrameRange) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i <= r.End; i++ {
		out = append(out, i)
	}
	return out
}

// Clamp bounds the range to [0, maxFrame], swapping ends when inverted.
func (r FrameRange) Clamp(maxFrame int) FrameRange {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > maxFrame {
		r.End = maxFrame
	}
	return r
}

// MarshalJSON renders the expanded index list.
func (r FrameRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Indices())
}

// UnmarshalJSON accepts either the compact [start, end] pair used by rule
// definitions or a previously expanded index list.
func (r *FrameRange) UnmarshalJSON(data []byte) error {
	var idx []int
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if len(idx) < 2 {
		return fmt.Errorf("%w: need at least [start, end]", ErrFrameRange)
	}
	r.Start = idx[0]
	r.End = idx[len(idx)-1]
	return nil
}

// Load reads a skeleton sequence from a JSON file: an array of frames, each
// a JointCount x 3 array of floats.
func Load(path string) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skeleton: %w", err)
	}
	return Decode(data)
}

// Decode parses a skeleton sequence from raw JSON bytes.
//
// OpenPose exports write bare NaN tokens for missing joints, which
// encoding/json rejects; those tokens are normalized to null first and
// surface as NaN components.
func Decode(data []byte) (Sequence, error) {
	data = normalizeNaN(data)

	var raw [][][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode skeleton: %w", err)
	}

	seq := make(Sequence, len(raw))
	for fi, frame := range raw {
		if len(frame) != JointCount {
			return nil, fmt.Errorf("%w: frame %d has %d joints", ErrJointCount, fi, len(frame))
		}
		out := make(Frame, JointCount)
		for ji, joint := range frame {
			if len(joint) != 3 {
				return nil, fmt.Errorf("%w: frame %d joint %d has %d components", ErrJointCount, fi, ji, len(joint))
			}
			for ci, c := range joint {
				if c == nil {
					out[ji][ci] = math.NaN()
				} else {
					out[ji][ci] = *c
				}
			}
		}
		seq[fi] = out
	}
	return seq, nil
}

// normalizeNaN rewrites bare NaN/Infinity tokens to null. Skeleton files are
// pure number arrays, so a token-level replace is safe.
func normalizeNaN(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}
	data = bytes.ReplaceAll(data, []byte("NaN"), []byte("null"))
	data = bytes.ReplaceAll(data, []byte("-Infinity"), []byte("null"))
	data = bytes.ReplaceAll(data, []byte("Infinity"), []byte("null"))
	return data
}
