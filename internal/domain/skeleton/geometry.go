package skeleton

import "math"

// Vec3 is a 3D point or direction. It marshals as the [x, y, z] triple used
// by the skeleton wire format.
type Vec3 [3]float64

// X returns the first component.
func (v Vec3) X() float64 { return v[0] }

// Y returns the second component.
func (v Vec3) Y() float64 { return v[1] }

// Z returns the third component.
func (v Vec3) Z() float64 { return v[2] }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Unit returns v scaled to length 1. Zero or NaN vectors yield NaN
// components, matching the arithmetic everywhere else in this package.
func (v Vec3) Unit() Vec3 {
	return v.Scale(1 / v.Norm())
}

// HasNaN reports whether any component of v is NaN.
func (v Vec3) HasNaN() bool {
	return math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsNaN(v[2])
}

// IsZero reports whether every component of v is exactly zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Angle returns the angle between a and b in degrees. The cosine is clipped
// to [-1, 1] before the arccos so rounding noise cannot push it out of
// domain. Zero-length inputs propagate as NaN.
func Angle(a, b Vec3) float64 {
	cos := a.Unit().Dot(b.Unit())
	return Degrees(math.Acos(ClipUnit(cos)))
}

// AngleWithXZPlane returns the angle in degrees between v and its projection
// onto the XZ (ground) plane.
func AngleWithXZPlane(v Vec3) float64 {
	return Angle(v, Vec3{v[0], 0, v[2]})
}

// ClipUnit bounds x to [-1, 1]. NaN passes through.
func ClipUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CenterOfGravity approximates a frame's center of gravity as the midpoint
// of neck and mid hip.
func CenterOfGravity(f Frame) Vec3 {
	return f[JointNeck].Add(f[JointMidHip]).Scale(0.5)
}

// MeanCenterOfGravity averages the per-joint positions over all frames and
// returns the center of gravity of that mean pose.
func MeanCenterOfGravity(s Sequence) Vec3 {
	return MeanJoint(s, JointNeck).Add(MeanJoint(s, JointMidHip)).Scale(0.5)
}

// MeanJoint returns the mean position of one joint across all frames.
func MeanJoint(s Sequence, joint int) Vec3 {
	var sum Vec3
	for _, f := range s {
		sum = sum.Add(f[joint])
	}
	return sum.Scale(1 / float64(len(s)))
}

// RelativeCGOffset returns the signed offset of a frame's center of gravity
// from the ankle midpoint along one ground axis. Axis 0 is X, axis 2 is Z.
func RelativeCGOffset(f Frame, axis int) float64 {
	cg := CenterOfGravity(f)
	feet := f[JointRAnkle].Add(f[JointLAnkle]).Scale(0.5)
	return cg[axis] - feet[axis]
}

// MeanPose returns the per-joint mean position over all frames as a single
// synthetic frame.
func MeanPose(s Sequence) Frame {
	out := make(Frame, JointCount)
	for j := 0; j < JointCount; j++ {
		out[j] = MeanJoint(s, j)
	}
	return out
}
