package app

import (
	"context"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Frame is one captured video frame. Data is opaque to the engine and is
// interpreted only by the FaceTracker that pairs with the Camera.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Data       any
}

// Camera supplies frames. Open must wrap ErrPermissionDenied when the user
// refused access.
type Camera interface {
	Open(ctx context.Context) error
	// Frame returns the most recent frame; ok is false when none is ready.
	Frame() (frame Frame, ok bool)
	Close() error
}

// FaceTracker is the face detection and landmark model.
type FaceTracker interface {
	Load(ctx context.Context) error
	Detect(ctx context.Context, f Frame) ([]model.Face, error)
	Landmarks(ctx context.Context, f Frame, face model.Face) (model.Mesh, error)
}

// Snapshotter captures an evidence image of the current frame.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Enqueuer accepts violations for asynchronous delivery without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, v model.Violation) error
}

// Observer is called synchronously with every dispatched violation.
type Observer func(ctx context.Context, v model.Violation)

// Identity names the candidate and the assessment a session belongs to.
type Identity struct {
	SubjectID    string `json:"subjectId"`
	AssessmentID string `json:"assessmentId"`
}

// Complete reports whether both ids are set.
func (i Identity) Complete() bool {
	return i.SubjectID != "" && i.AssessmentID != ""
}
