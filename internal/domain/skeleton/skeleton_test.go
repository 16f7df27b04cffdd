package skeleton_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	skeleton "github.com/okian/kata/internal/domain/skeleton"
	. "github.com/smartystreets/goconvey/convey"
)

// zeroFrame returns a BODY_25 frame with every joint at the origin.
func zeroFrame() skeleton.Frame {
	return make(skeleton.Frame, skeleton.JointCount)
}

// frameWith returns a zero frame with the given joints overridden.
func frameWith(joints map[int]skeleton.Vec3) skeleton.Frame {
	f := zeroFrame()
	for j, v := range joints {
		f[j] = v
	}
	return f
}

func TestDecode(t *testing.T) {
	Convey("Given raw skeleton JSON", t, func() {
		Convey("When every frame carries 25 joints", func() {
			frame := make([][]float64, skeleton.JointCount)
			for j := range frame {
				frame[j] = []float64{float64(j), 0, 1}
			}
			data, err := json.Marshal([][][]float64{frame, frame})
			So(err, ShouldBeNil)

			seq, err := skeleton.Decode(data)

			Convey("Then the sequence mirrors the file", func() {
				So(err, ShouldBeNil)
				So(len(seq), ShouldEqual, 2)
				So(len(seq[0]), ShouldEqual, skeleton.JointCount)
				So(seq[0][3][0], ShouldEqual, 3.0)
				So(seq[1][24][2], ShouldEqual, 1.0)
			})
		})

		Convey("When a joint is written as a bare NaN token", func() {
			// Capture exports write NaN literals for undetected joints.
			joints := strings.Repeat("[0,0,0],", skeleton.JointCount-1) + "[NaN,NaN,NaN]"
			data := []byte("[[" + joints + "]]")

			seq, err := skeleton.Decode(data)

			Convey("Then the joint surfaces as NaN components", func() {
				So(err, ShouldBeNil)
				So(math.IsNaN(seq[0][24][0]), ShouldBeTrue)
				So(math.IsNaN(seq[0][24][2]), ShouldBeTrue)
				So(seq[0][0][0], ShouldEqual, 0.0)
			})
		})

		Convey("When a frame has the wrong joint count", func() {
			data := []byte(`[[[0,0,0],[1,1,1]]]`)

			_, err := skeleton.Decode(data)

			Convey("Then decoding fails with the layout sentinel", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "bad joint layout")
			})
		})
	})
}

func TestFrameRange(t *testing.T) {
	Convey("Given an inclusive frame range", t, func() {
		r := skeleton.FrameRange{Start: 3, End: 6}

		Convey("When expanded", func() {
			Convey("Then it lists every covered index", func() {
				So(r.Len(), ShouldEqual, 4)
				So(r.Indices(), ShouldResemble, []int{3, 4, 5, 6})
			})
		})

		Convey("When marshaled", func() {
			data, err := json.Marshal(r)

			Convey("Then the wire form is the expanded index list", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "[3,4,5,6]")
			})
		})

		Convey("When unmarshaled from the compact pair form", func() {
			var got skeleton.FrameRange
			err := json.Unmarshal([]byte("[10,20]"), &got)

			Convey("Then the bounds are taken as given", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, skeleton.FrameRange{Start: 10, End: 20})
			})
		})

		Convey("When unmarshaled from an expanded list", func() {
			var got skeleton.FrameRange
			err := json.Unmarshal([]byte("[4,5,6,7]"), &got)

			Convey("Then the bounds come from the ends", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, skeleton.FrameRange{Start: 4, End: 7})
			})
		})

		Convey("When clamped", func() {
			Convey("Then inverted bounds are swapped before clamping", func() {
				got := skeleton.FrameRange{Start: 9, End: -2}.Clamp(5)
				So(got, ShouldResemble, skeleton.FrameRange{Start: 0, End: 5})
			})

			Convey("Then in-bounds ranges are untouched", func() {
				got := skeleton.FrameRange{Start: 1, End: 4}.Clamp(10)
				So(got, ShouldResemble, skeleton.FrameRange{Start: 1, End: 4})
			})
		})
	})
}

func TestSequence_Extract(t *testing.T) {
	Convey("Given a five frame sequence", t, func() {
		seq := make(skeleton.Sequence, 5)
		for i := range seq {
			seq[i] = frameWith(map[int]skeleton.Vec3{0: {float64(i), 0, 0}})
		}

		Convey("When extracting a mid range", func() {
			sub, err := seq.Extract(skeleton.FrameRange{Start: 1, End: 3})

			Convey("Then the subsequence covers both ends", func() {
				So(err, ShouldBeNil)
				So(len(sub), ShouldEqual, 3)
				So(sub[0][0][0], ShouldEqual, 1.0)
				So(sub[2][0][0], ShouldEqual, 3.0)
			})
		})

		Convey("When the range runs past the data", func() {
			_, err := seq.Extract(skeleton.FrameRange{Start: 2, End: 7})

			Convey("Then extraction fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid frame range")
			})
		})
	})
}

func TestGeometry(t *testing.T) {
	Convey("Given basic vectors", t, func() {
		Convey("When measuring the angle between axes", func() {
			got := skeleton.Angle(skeleton.Vec3{1, 0, 0}, skeleton.Vec3{0, 1, 0})

			Convey("Then perpendicular vectors read 90 degrees", func() {
				So(got, ShouldAlmostEqual, 90.0)
			})
		})

		Convey("When the vectors are parallel", func() {
			got := skeleton.Angle(skeleton.Vec3{2, 0, 0}, skeleton.Vec3{5, 0, 0})

			Convey("Then rounding noise cannot push the cosine out of domain", func() {
				So(got, ShouldAlmostEqual, 0.0)
			})
		})

		Convey("When one vector has zero length", func() {
			got := skeleton.Angle(skeleton.Vec3{}, skeleton.Vec3{1, 0, 0})

			Convey("Then the angle is NaN rather than a fabricated value", func() {
				So(math.IsNaN(got), ShouldBeTrue)
			})
		})

		Convey("When measuring elevation against the ground plane", func() {
			got := skeleton.AngleWithXZPlane(skeleton.Vec3{1, 1, 0})

			Convey("Then a 45 degree riser reads 45", func() {
				So(got, ShouldAlmostEqual, 45.0)
			})
		})
	})

	Convey("Given a pose", t, func() {
		f := frameWith(map[int]skeleton.Vec3{
			skeleton.JointNeck:   {0, 2, 0},
			skeleton.JointMidHip: {0, 1, 2},
			skeleton.JointRAnkle: {1, 0, 1},
			skeleton.JointLAnkle: {-1, 0, 3},
		})

		Convey("When computing the center of gravity", func() {
			cg := skeleton.CenterOfGravity(f)

			Convey("Then it is the neck and mid hip midpoint", func() {
				So(cg, ShouldResemble, skeleton.Vec3{0, 1.5, 1})
			})
		})

		Convey("When computing the CG offset from the ankles", func() {
			got := skeleton.RelativeCGOffset(f, 2)

			Convey("Then it is signed along the chosen axis", func() {
				// Ankle midpoint z is 2, CG z is 1.
				So(got, ShouldAlmostEqual, -1.0)
			})
		})
	})
}
