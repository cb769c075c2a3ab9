package model

import "time"

// Point is a 2D coordinate in device units (pixels) unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned bounding box with its origin at the top-left corner.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Face is one detection produced by the face tracker.
type Face struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// Mesh is the ordered landmark array produced for the primary face.
// Entries the tracker could not place are nil.
type Mesh []*Point

// At returns the landmark at index i. The second result is false when the
// index is out of range or the tracker left it empty.
func (m Mesh) At(i int) (Point, bool) {
	if i < 0 || i >= len(m) || m[i] == nil {
		return Point{}, false
	}
	return *m[i], true
}

// DetectionSample is the result of one scheduler tick.
type DetectionSample struct {
	Timestamp time.Time
	Faces     []Face
	// Mesh belongs to the primary face; nil when no landmarks were produced.
	Mesh Mesh
}

// Primary returns the highest-confidence face.
func (s DetectionSample) Primary() (Face, bool) {
	if len(s.Faces) == 0 {
		return Face{}, false
	}
	best := s.Faces[0]
	for _, f := range s.Faces[1:] {
		if f.Confidence > best.Confidence {
			best = f
		}
	}
	return best, true
}
