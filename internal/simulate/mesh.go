package simulate

import (
	"github.com/okian/vigil/internal/domain/landmarks"
	"github.com/okian/vigil/internal/domain/model"
)

const (
	meshPoints  = 478
	meshColumns = 22

	eyeHalfWidth = 15.0
	eyeOpenLid   = 5.0
	eyeClosedLid = 0.5

	// blinkEvery frames the candidate closes their eyes for blinkFrames.
	blinkEvery  = 30
	blinkFrames = 2
)

var scheme = landmarks.DefaultScheme()

// meshFor lays a full landmark mesh over box. The eyes sit in the upper
// third of the box, open except during periodic blinks, with the irises
// shifted horizontally by gaze eye widths.
func meshFor(box model.Box, n int, gaze float64) model.Mesh {
	mesh := make(model.Mesh, meshPoints)
	rows := (meshPoints + meshColumns - 1) / meshColumns
	for i := range mesh {
		col, row := i%meshColumns, i/meshColumns
		mesh[i] = &model.Point{
			X: box.X + float64(col)*box.W/meshColumns,
			Y: box.Y + float64(row)*box.H/float64(rows),
		}
	}

	lid := eyeOpenLid
	if n%blinkEvery >= blinkEvery-blinkFrames {
		lid = eyeClosedLid
	}
	eyeY := box.Y + box.H/3
	irisDX := gaze * 2 * eyeHalfWidth

	placeEye(mesh, scheme.LeftEye, scheme.LeftCorners, box.X+box.W*0.3, eyeY, lid)
	placeEye(mesh, scheme.RightEye, scheme.RightCorners, box.X+box.W*0.7, eyeY, lid)
	mesh[scheme.LeftIris] = &model.Point{X: box.X + box.W*0.3 + irisDX, Y: eyeY}
	mesh[scheme.RightIris] = &model.Point{X: box.X + box.W*0.7 + irisDX, Y: eyeY}
	return mesh
}

// placeEye writes the six-point contour and the corner set of one eye
// centred on (cx, cy). The corner set's horizontal pair shares indices with
// the contour, so only its top and bottom points are written separately.
func placeEye(mesh model.Mesh, contour [landmarks.EyeContourSize]int, corners [landmarks.CornerSetSize]int, cx, cy, lid float64) {
	set := func(idx int, x, y float64) { mesh[idx] = &model.Point{X: x, Y: y} }

	set(contour[0], cx-eyeHalfWidth, cy)
	set(contour[1], cx-eyeHalfWidth/3, cy-lid)
	set(contour[2], cx+eyeHalfWidth/3, cy-lid)
	set(contour[3], cx+eyeHalfWidth, cy)
	set(contour[4], cx+eyeHalfWidth/3, cy+lid)
	set(contour[5], cx-eyeHalfWidth/3, cy+lid)

	set(corners[2], cx, cy-lid)
	set(corners[3], cx, cy+lid)
}
