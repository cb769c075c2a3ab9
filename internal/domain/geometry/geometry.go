// Package geometry turns facial landmark coordinates into scalar and
// categorical signals. Every function is pure.
package geometry

import (
	"math"

	"github.com/okian/vigil/internal/domain/model"
)

// Gaze classification constants.
const (
	gazeHorizontalThreshold = 0.15
	gazeVerticalThreshold   = 0.12
	gazeCenterConfidence    = 0.8
	gazeBaseConfidence      = 0.6
	gazeConfidenceSlope     = 2.0
	gazeAwayConfidence      = 0.5
)

// Identity normalization constants.
const (
	identityMinPresentRatio = 0.8
	identityMinExtent       = 10.0
	similarityOutlierCutoff = 0.5
	similarityMinValidRatio = 0.5
	similarityDecay         = 8.0
)

func dist(a, b model.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) over a 6-point eye
// contour. Degenerate input returns 1.0 ("open"), never a blink.
func EyeAspectRatio(eye []model.Point) float64 {
	if len(eye) < 6 {
		return 1.0
	}
	horizontal := dist(eye[0], eye[3])
	if horizontal == 0 {
		return 1.0
	}
	return (dist(eye[1], eye[5]) + dist(eye[2], eye[4])) / (2 * horizontal)
}

// eyeOffset returns the iris offset from the eye centre, normalized by eye
// width on x and by eye height on y.
func eyeOffset(iris model.Point, corners []model.Point) (x, y float64, ok bool) {
	outer, inner, top, bottom := corners[0], corners[1], corners[2], corners[3]
	width := dist(outer, inner)
	if width == 0 {
		return 0, 0, false
	}
	height := dist(top, bottom)
	if height == 0 {
		height = width / 2
	}
	cx := (outer.X + inner.X) / 2
	cy := (outer.Y + inner.Y) / 2
	return (iris.X - cx) / width, (iris.Y - cy) / height, true
}

// GazeDirection classifies where the subject is looking from both iris
// centres and their 4-point corner sets (outer, inner, top, bottom).
func GazeDirection(leftIris, rightIris *model.Point, leftCorners, rightCorners []model.Point) model.GazeReading {
	away := model.GazeReading{Direction: model.DirectionAway, Confidence: gazeAwayConfidence}
	if leftIris == nil || rightIris == nil || len(leftCorners) < 4 || len(rightCorners) < 4 {
		return away
	}
	lx, ly, ok := eyeOffset(*leftIris, leftCorners)
	if !ok {
		return away
	}
	rx, ry, ok := eyeOffset(*rightIris, rightCorners)
	if !ok {
		return away
	}
	x := (lx + rx) / 2
	y := (ly + ry) / 2

	switch {
	case x < -gazeHorizontalThreshold:
		return offCenter(model.DirectionLeft, x, gazeHorizontalThreshold)
	case x > gazeHorizontalThreshold:
		return offCenter(model.DirectionRight, x, gazeHorizontalThreshold)
	case y < -gazeVerticalThreshold:
		return offCenter(model.DirectionUp, y, gazeVerticalThreshold)
	case y > gazeVerticalThreshold:
		return offCenter(model.DirectionDown, y, gazeVerticalThreshold)
	}
	return model.GazeReading{Direction: model.DirectionCenter, Confidence: gazeCenterConfidence}
}

func offCenter(d model.Direction, offset, threshold float64) model.GazeReading {
	c := gazeBaseConfidence + gazeConfidenceSlope*(math.Abs(offset)-threshold)
	return model.GazeReading{Direction: d, Confidence: math.Min(1.0, c)}
}

// NormalizeIdentityLandmarks maps the identity subset into the unit square of
// its own bounding box, which makes it scale and position invariant. Absent
// points stay nil. The second result is false when fewer than 80% of the
// points are present or the box is smaller than 10 units on either axis.
func NormalizeIdentityLandmarks(points []*model.Point) ([]*model.Point, bool) {
	if len(points) == 0 {
		return nil, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	n := 0
	for _, p := range points {
		if p == nil {
			continue
		}
		n++
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if float64(n) < identityMinPresentRatio*float64(len(points)) {
		return nil, false
	}
	w, h := maxX-minX, maxY-minY
	if w < identityMinExtent || h < identityMinExtent {
		return nil, false
	}
	out := make([]*model.Point, len(points))
	for i, p := range points {
		if p == nil {
			continue
		}
		out[i] = &model.Point{X: (p.X - minX) / w, Y: (p.Y - minY) / h}
	}
	return out, true
}

// FaceSimilarity scores two normalized identity sets in [0,1]. Pairs further
// apart than 0.5 are outliers; fewer than half the pairs within the cutoff
// scores 0.
func FaceSimilarity(a, b []*model.Point) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	pairs, valid := 0, 0
	total := 0.0
	for i := 0; i < n; i++ {
		if a[i] == nil || b[i] == nil {
			continue
		}
		pairs++
		d := dist(*a[i], *b[i])
		if d >= similarityOutlierCutoff {
			continue
		}
		valid++
		total += d
	}
	if pairs == 0 || float64(valid) < similarityMinValidRatio*float64(pairs) {
		return 0
	}
	return math.Exp(-similarityDecay * total / float64(valid))
}

// HeadMovementDelta is the mean per-point displacement between two motion
// landmark sets, over their common prefix.
func HeadMovementDelta(current, previous []model.Point) float64 {
	n := len(current)
	if len(previous) < n {
		n = len(previous)
	}
	if n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += dist(current[i], previous[i])
	}
	return total / float64(n)
}
