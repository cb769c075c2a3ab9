package geometry_test

import (
	"math"
	"testing"

	"github.com/okian/vigil/internal/domain/geometry"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openEye() []model.Point {
	return []model.Point{
		{X: 0, Y: 0}, {X: 3, Y: -2}, {X: 7, Y: -2},
		{X: 10, Y: 0}, {X: 7, Y: 2}, {X: 3, Y: 2},
	}
}

func mirror(pts []model.Point) []model.Point {
	out := make([]model.Point, len(pts))
	for i, p := range pts {
		out[i] = model.Point{X: -p.X, Y: p.Y}
	}
	return out
}

// corners builds an eye of the given width/height centred at (cx, cy).
func corners(cx, cy, w, h float64) []model.Point {
	return []model.Point{
		{X: cx - w/2, Y: cy}, {X: cx + w/2, Y: cy},
		{X: cx, Y: cy - h/2}, {X: cx, Y: cy + h/2},
	}
}

func TestEyeAspectRatio(t *testing.T) {
	Convey("Given eye contours", t, func() {
		Convey("When the eye is open", func() {
			ear := geometry.EyeAspectRatio(openEye())

			Convey("Then the ratio is vertical span over width", func() {
				So(ear, ShouldAlmostEqual, 0.4, 1e-9)
			})

			Convey("Then it is symmetric under horizontal mirroring", func() {
				So(geometry.EyeAspectRatio(mirror(openEye())), ShouldAlmostEqual, ear, 1e-12)
			})
		})

		Convey("When fewer than 6 points are given", func() {
			So(geometry.EyeAspectRatio(openEye()[:5]), ShouldEqual, 1.0)
			So(geometry.EyeAspectRatio(nil), ShouldEqual, 1.0)
		})

		Convey("When the horizontal distance is zero", func() {
			eye := openEye()
			eye[3] = eye[0]
			So(geometry.EyeAspectRatio(eye), ShouldEqual, 1.0)
		})

		Convey("When the eye is closed", func() {
			eye := openEye()
			for _, i := range []int{1, 2, 4, 5} {
				eye[i].Y = 0
			}
			So(geometry.EyeAspectRatio(eye), ShouldEqual, 0)
		})
	})
}

func TestGazeDirection(t *testing.T) {
	Convey("Given two eyes 20 units wide and 10 tall", t, func() {
		lc := corners(100, 100, 20, 10)
		rc := corners(160, 100, 20, 10)
		iris := func(dx, dy float64) (*model.Point, *model.Point) {
			return &model.Point{X: 100 + dx, Y: 100 + dy}, &model.Point{X: 160 + dx, Y: 100 + dy}
		}

		Convey("When the iris is exactly centred", func() {
			l, r := iris(0, 0)
			g := geometry.GazeDirection(l, r, lc, rc)

			So(g.Direction, ShouldEqual, model.DirectionCenter)
			So(g.Confidence, ShouldEqual, 0.8)
		})

		Convey("When the iris is shifted inside the thresholds", func() {
			l, r := iris(2, 1)
			So(geometry.GazeDirection(l, r, lc, rc).Direction, ShouldEqual, model.DirectionCenter)
		})

		Convey("When the iris is shifted horizontally", func() {
			l, r := iris(-4, 0) // offset -0.2
			g := geometry.GazeDirection(l, r, lc, rc)
			So(g.Direction, ShouldEqual, model.DirectionLeft)
			So(g.Confidence, ShouldAlmostEqual, 0.7, 1e-9)

			l, r = iris(4, 0)
			So(geometry.GazeDirection(l, r, lc, rc).Direction, ShouldEqual, model.DirectionRight)
		})

		Convey("When the iris is shifted vertically", func() {
			l, r := iris(0, -2) // offset -0.2 of height 10
			g := geometry.GazeDirection(l, r, lc, rc)
			So(g.Direction, ShouldEqual, model.DirectionUp)
			So(g.Confidence, ShouldAlmostEqual, 0.76, 1e-9)

			l, r = iris(0, 2)
			So(geometry.GazeDirection(l, r, lc, rc).Direction, ShouldEqual, model.DirectionDown)
		})

		Convey("When the offset is far past the threshold", func() {
			l, r := iris(15, 0)
			So(geometry.GazeDirection(l, r, lc, rc).Confidence, ShouldEqual, 1.0)
		})

		Convey("When the eye height degenerates", func() {
			flat := corners(100, 100, 20, 0)
			flatR := corners(160, 100, 20, 0)
			l, r := iris(0, 2) // 2 / (20/2) = 0.2
			So(geometry.GazeDirection(l, r, flat, flatR).Direction, ShouldEqual, model.DirectionDown)
		})

		Convey("When any input is missing", func() {
			l, r := iris(0, 0)
			want := model.GazeReading{Direction: model.DirectionAway, Confidence: 0.5}
			So(geometry.GazeDirection(nil, r, lc, rc), ShouldResemble, want)
			So(geometry.GazeDirection(l, nil, lc, rc), ShouldResemble, want)
			So(geometry.GazeDirection(l, r, nil, rc), ShouldResemble, want)
			So(geometry.GazeDirection(l, r, lc, rc[:3]), ShouldResemble, want)
			So(geometry.GazeDirection(l, r, corners(100, 100, 0, 10), rc), ShouldResemble, want)
		})
	})
}

func identitySet() []*model.Point {
	pts := make([]*model.Point, 20)
	for i := range pts {
		pts[i] = &model.Point{X: 200 + float64(i%5)*25, Y: 300 + float64(i/5)*30}
	}
	return pts
}

func TestNormalizeIdentityLandmarks(t *testing.T) {
	Convey("Given a 20-point identity subset", t, func() {
		Convey("When all points are present", func() {
			out, ok := geometry.NormalizeIdentityLandmarks(identitySet())

			Convey("Then points are mapped into the unit square", func() {
				So(ok, ShouldBeTrue)
				So(out, ShouldHaveLength, 20)
				So(*out[0], ShouldResemble, model.Point{X: 0, Y: 0})
				So(*out[19], ShouldResemble, model.Point{X: 1, Y: 1})
				for _, p := range out {
					So(p.X, ShouldBeBetweenOrEqual, 0, 1)
					So(p.Y, ShouldBeBetweenOrEqual, 0, 1)
				}
			})
		})

		Convey("When the set is scaled and shifted", func() {
			scaled := identitySet()
			for i, p := range scaled {
				scaled[i] = &model.Point{X: p.X*2 + 40, Y: p.Y*2 - 7}
			}
			a, _ := geometry.NormalizeIdentityLandmarks(identitySet())
			b, _ := geometry.NormalizeIdentityLandmarks(scaled)

			So(geometry.FaceSimilarity(a, b), ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("When exactly 80% are present", func() {
			pts := identitySet()
			for _, i := range []int{6, 7, 8, 11} {
				pts[i] = nil
			}
			out, ok := geometry.NormalizeIdentityLandmarks(pts)
			So(ok, ShouldBeTrue)
			So(out[6], ShouldBeNil)
		})

		Convey("When fewer than 80% are present", func() {
			pts := identitySet()
			for _, i := range []int{6, 7, 8, 11, 12} {
				pts[i] = nil
			}
			_, ok := geometry.NormalizeIdentityLandmarks(pts)
			So(ok, ShouldBeFalse)
		})

		Convey("When the face is too small", func() {
			pts := identitySet()
			for i, p := range pts {
				pts[i] = &model.Point{X: p.X / 20, Y: p.Y}
			}
			_, ok := geometry.NormalizeIdentityLandmarks(pts)
			So(ok, ShouldBeFalse)

			_, ok = geometry.NormalizeIdentityLandmarks(nil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestFaceSimilarity(t *testing.T) {
	Convey("Given a normalized identity set", t, func() {
		base, _ := geometry.NormalizeIdentityLandmarks(identitySet())
		shift := func(d float64) []*model.Point {
			out := make([]*model.Point, len(base))
			for i, p := range base {
				out[i] = &model.Point{X: p.X + d, Y: p.Y}
			}
			return out
		}

		Convey("When compared with itself", func() {
			So(geometry.FaceSimilarity(base, base), ShouldEqual, 1.0)
		})

		Convey("When points move further apart", func() {
			prev := 1.0
			for _, d := range []float64{0.05, 0.1, 0.2, 0.3, 0.45} {
				s := geometry.FaceSimilarity(base, shift(d))
				So(s, ShouldBeLessThan, prev)
				So(s, ShouldAlmostEqual, math.Exp(-8*d), 1e-9)
				prev = s
			}
		})

		Convey("When every pair is an outlier", func() {
			So(geometry.FaceSimilarity(base, shift(0.6)), ShouldEqual, 0)
		})

		Convey("When fewer than half the pairs are within the cutoff", func() {
			moved := shift(0)
			for i := 0; i < 11; i++ {
				moved[i] = &model.Point{X: base[i].X + 0.7, Y: base[i].Y}
			}
			So(geometry.FaceSimilarity(base, moved), ShouldEqual, 0)
		})

		Convey("When exactly half are outliers", func() {
			moved := shift(0.1)
			for i := 0; i < 10; i++ {
				moved[i] = &model.Point{X: base[i].X + 0.7, Y: base[i].Y}
			}
			So(geometry.FaceSimilarity(base, moved), ShouldAlmostEqual, math.Exp(-0.8), 1e-9)
		})

		Convey("When nothing pairs up", func() {
			So(geometry.FaceSimilarity(nil, base), ShouldEqual, 0)
			So(geometry.FaceSimilarity(make([]*model.Point, 20), base), ShouldEqual, 0)
		})
	})
}

func TestHeadMovementDelta(t *testing.T) {
	Convey("Given two motion sets", t, func() {
		prev := []model.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}

		Convey("When every point moves by a 3-4-5 step", func() {
			cur := []model.Point{{X: 3, Y: 4}, {X: 13, Y: 14}}
			So(geometry.HeadMovementDelta(cur, prev), ShouldEqual, 5)
		})

		Convey("When nothing moves", func() {
			So(geometry.HeadMovementDelta(prev, prev), ShouldEqual, 0)
		})

		Convey("When either set is empty", func() {
			So(geometry.HeadMovementDelta(nil, prev), ShouldEqual, 0)
			So(geometry.HeadMovementDelta(prev, nil), ShouldEqual, 0)
		})
	})
}
