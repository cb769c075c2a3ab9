// Package landmarks maps the face tracker's ordered landmark array onto the
// fixed-shape record consumed by the geometry and classifier packages.
//
// The default scheme follows the 478-point face mesh with refined iris
// landmarks. Trackers with a different topology supply their own Scheme.
package landmarks

import "github.com/okian/vigil/internal/domain/model"

// Sizes of the fixed subsets.
const (
	EyeContourSize = 6
	CornerSetSize  = 4
	MotionSize     = 68
	IdentitySize   = 20
)

// Scheme holds the mesh indices of every subset the engine reads.
type Scheme struct {
	// Eye contours ordered p0..p5: horizontal corners at 0 and 3, upper lid
	// at 1 and 2, lower lid at 4 and 5.
	LeftEye  [EyeContourSize]int
	RightEye [EyeContourSize]int

	LeftIris  int
	RightIris int

	// Corner sets ordered outer, inner, top, bottom.
	LeftCorners  [CornerSetSize]int
	RightCorners [CornerSetSize]int

	Motion   [MotionSize]int
	Identity [IdentitySize]int
}

// DefaultScheme returns the 478-point face mesh scheme.
func DefaultScheme() Scheme {
	return Scheme{
		LeftEye:      [EyeContourSize]int{33, 160, 158, 133, 153, 144},
		RightEye:     [EyeContourSize]int{362, 385, 387, 263, 373, 380},
		LeftIris:     468,
		RightIris:    473,
		LeftCorners:  [CornerSetSize]int{33, 133, 159, 145},
		RightCorners: [CornerSetSize]int{263, 362, 386, 374},
		Motion: [MotionSize]int{
			// jaw
			127, 234, 93, 132, 58, 172, 136, 150, 176, 152, 400, 379, 365, 397, 288, 361, 454,
			// brows
			70, 63, 105, 66, 107, 336, 296, 334, 293, 300,
			// nose
			168, 197, 5, 4, 75, 97, 2, 326, 305,
			// eyes
			33, 160, 158, 133, 153, 144, 362, 385, 387, 263, 373, 380,
			// outer lips
			61, 39, 37, 0, 267, 269, 291, 405, 314, 17, 84, 181,
			// inner lips
			78, 82, 13, 312, 308, 317, 14, 87,
		},
		Identity: [IdentitySize]int{
			10, 152, 234, 454, 33, 133, 362, 263, 1, 4,
			61, 291, 13, 14, 70, 300, 105, 334, 168, 199,
		},
	}
}

// Face is the validated landmark record of the primary face. Subsets that
// could not be fully resolved are nil, which downstream code treats as
// "undetected".
type Face struct {
	LeftEye  []model.Point
	RightEye []model.Point

	LeftIris  *model.Point
	RightIris *model.Point

	LeftCorners  []model.Point
	RightCorners []model.Point

	Motion []model.Point
	// Identity keeps positional alignment; absent indices are nil.
	Identity []*model.Point
}

// Extract resolves every subset of the scheme against mesh.
func (s Scheme) Extract(mesh model.Mesh) Face {
	return Face{
		LeftEye:      present(mesh, s.LeftEye[:]),
		RightEye:     present(mesh, s.RightEye[:]),
		LeftIris:     optional(mesh, s.LeftIris),
		RightIris:    optional(mesh, s.RightIris),
		LeftCorners:  complete(mesh, s.LeftCorners[:]),
		RightCorners: complete(mesh, s.RightCorners[:]),
		Motion:       complete(mesh, s.Motion[:]),
		Identity:     s.IdentityPoints(mesh),
	}
}

// IdentityPoints resolves only the identity subset; used for enrollment.
func (s Scheme) IdentityPoints(mesh model.Mesh) []*model.Point {
	out := make([]*model.Point, IdentitySize)
	for i, idx := range s.Identity {
		out[i] = optional(mesh, idx)
	}
	return out
}

// present returns the points that exist, in scheme order. A short result
// means at least one index was absent.
func present(mesh model.Mesh, idx []int) []model.Point {
	out := make([]model.Point, 0, len(idx))
	for _, i := range idx {
		if p, ok := mesh.At(i); ok {
			out = append(out, p)
		}
	}
	return out
}

// complete returns nil unless every index resolves.
func complete(mesh model.Mesh, idx []int) []model.Point {
	out := present(mesh, idx)
	if len(out) != len(idx) {
		return nil
	}
	return out
}

func optional(mesh model.Mesh, i int) *model.Point {
	p, ok := mesh.At(i)
	if !ok {
		return nil
	}
	return &p
}
