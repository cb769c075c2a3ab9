// Package facestream adapts detections pushed by the candidate's browser to
// the engine's Camera, FaceTracker and Snapshotter contracts.
//
// The browser runs the face model locally and streams one Sample per video
// frame. Stream keeps only the newest one; the scheduler reads it on its own
// cadence, so a slow engine never builds a backlog.
package facestream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/environment"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/clock"
)

const defaultStaleAfter = 2 * time.Second

// Sample is one browser-side detection result.
type Sample struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Faces    []model.Face `json:"faces"`
	Mesh     model.Mesh   `json:"mesh"`
	Snapshot []byte       `json:"snapshot,omitempty"`
}

// Validate rejects samples the classifier cannot use.
func (s *Sample) Validate() error {
	for i, f := range s.Faces {
		if f.Confidence < 0 || f.Confidence > 1 {
			return fmt.Errorf("%w: face %d confidence %v", ErrInvalidSample, i, f.Confidence)
		}
	}
	if len(s.Mesh) > 0 && len(s.Faces) == 0 {
		return fmt.Errorf("%w: mesh without a face", ErrInvalidSample)
	}
	return nil
}

// CameraStatus is what the browser reported about camera acquisition.
type CameraStatus string

// Camera statuses.
const (
	CameraPending CameraStatus = ""
	CameraGranted CameraStatus = "granted"
	CameraDenied  CameraStatus = "denied"
	CameraError   CameraStatus = "error"
)

// Option applies a configuration option to the Stream.
type Option func(*Stream)

// WithClock sets the time source used for frame staleness.
func WithClock(c clock.Clock) Option {
	return func(s *Stream) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithStaleAfter sets how old the newest sample may be before the camera
// reports no frame ready.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

type slot struct {
	seq        uint64
	receivedAt time.Time
	sample     *Sample
}

// Stream is the latest-sample slot of one browser connection.
type Stream struct {
	clock      clock.Clock
	staleAfter time.Duration

	mu            sync.RWMutex
	latest        slot
	snapshot      []byte
	open          bool
	camera        CameraStatus
	cameraDetail  string
	trackerFailed string
	viewport      *environment.Viewport
}

var (
	_ app.Camera                = (*Stream)(nil)
	_ app.FaceTracker           = (*Stream)(nil)
	_ app.Snapshotter           = (*Stream)(nil)
	_ environment.ViewportProbe = (*Stream)(nil)
)

// New creates an empty stream.
func New(opts ...Option) *Stream {
	s := &Stream{clock: clock.Real(), staleAfter: defaultStaleAfter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCameraStatus records the browser's camera acquisition result. detail
// carries the browser error text for denied or error.
func (s *Stream) SetCameraStatus(status CameraStatus, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = status
	s.cameraDetail = detail
}

// SetTrackerFailed records that the browser could not load its face model.
// An empty reason clears the failure.
func (s *Stream) SetTrackerFailed(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackerFailed = reason
}

// Push stores sample as the newest frame. The last non-empty snapshot is
// kept separately so evidence survives samples sent without one.
func (s *Stream) Push(sample *Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = slot{seq: s.latest.seq + 1, receivedAt: s.clock.Now(), sample: sample}
	if len(sample.Snapshot) > 0 {
		s.snapshot = sample.Snapshot
	}
	return nil
}

// SetViewport stores the newest window geometry.
func (s *Stream) SetViewport(vp environment.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = &vp
}

// Open implements app.Camera. It fails with app.ErrPermissionDenied when the
// candidate refused the camera.
func (s *Stream) Open(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.camera {
	case CameraDenied:
		return fmt.Errorf("%s: %w", s.cameraDetail, app.ErrPermissionDenied)
	case CameraError:
		return fmt.Errorf("%w: %s", ErrCameraFailed, s.cameraDetail)
	}
	s.open = true
	return nil
}

// Frame implements app.Camera. The browser owns the device, so frames stay
// readable while closed; none is ready when the newest sample is older than
// the staleness bound.
func (s *Stream) Frame() (app.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest.sample == nil {
		return app.Frame{}, false
	}
	if s.clock.Now().Sub(s.latest.receivedAt) > s.staleAfter {
		return app.Frame{}, false
	}
	return app.Frame{
		Seq:        s.latest.seq,
		CapturedAt: s.latest.receivedAt,
		Width:      s.latest.sample.Width,
		Height:     s.latest.sample.Height,
		Data:       s.latest.sample,
	}, true
}

// Opened reports whether the scheduler currently holds the camera.
func (s *Stream) Opened() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Close implements app.Camera.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Load implements app.FaceTracker.
func (s *Stream) Load(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.trackerFailed != "" {
		return fmt.Errorf("%w: %s", ErrTrackerFailed, s.trackerFailed)
	}
	return nil
}

// Detect implements app.FaceTracker.
func (s *Stream) Detect(_ context.Context, f app.Frame) ([]model.Face, error) { //nolint:gocritic // hugeParam: app.Frame is passed by value by contract
	sample, ok := f.Data.(*Sample)
	if !ok {
		return nil, ErrForeignFrame
	}
	return sample.Faces, nil
}

// Landmarks implements app.FaceTracker. The browser only meshes the primary
// face, so face is not consulted.
func (s *Stream) Landmarks(_ context.Context, f app.Frame, _ model.Face) (model.Mesh, error) { //nolint:gocritic // hugeParam: app.Frame is passed by value by contract
	sample, ok := f.Data.(*Sample)
	if !ok {
		return nil, ErrForeignFrame
	}
	return sample.Mesh, nil
}

// Snapshot implements app.Snapshotter.
func (s *Stream) Snapshot(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshot) == 0 {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

// Viewport implements environment.ViewportProbe.
func (s *Stream) Viewport(_ context.Context) (environment.Viewport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.viewport == nil {
		return environment.Viewport{}, false
	}
	return *s.viewport, true
}
