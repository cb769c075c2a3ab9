// Package classifier turns one detection sample plus session state into
// zero or more violation intents.
//
// Rules run in a fixed order on every sample and are independent of each
// other: multi-face, gaze-away, liveness (no-blink and static head), and
// identity mismatch. Consecutive counters decide how fast a condition is
// declared; the dispatcher's throttle decides how often it is reported.
package classifier

import (
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/geometry"
	"github.com/okian/vigil/internal/domain/landmarks"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/registry"
)

// Reasons attached to intents.
const (
	ReasonNoFaceDetected = "noFaceDetected"
	ReasonNoFaceMesh     = "noFaceMesh"
	ReasonGazeDiverted   = "gazeDiverted"
	ReasonNoBlink        = "noBlink"
	ReasonStaticHead     = "staticHead"
)

// ReferenceProfile is the normalized identity landmark set captured at
// enrollment. It is immutable once built.
type ReferenceProfile struct {
	points     []*model.Point
	capturedAt time.Time
}

// NewReferenceProfile normalizes raw identity points into a profile.
func NewReferenceProfile(raw []*model.Point, capturedAt time.Time) (*ReferenceProfile, error) {
	norm, ok := geometry.NormalizeIdentityLandmarks(raw)
	if !ok {
		return nil, ErrInsufficientLandmarks
	}
	return &ReferenceProfile{points: norm, capturedAt: capturedAt}, nil
}

// CapturedAt returns the enrollment time.
func (p *ReferenceProfile) CapturedAt() time.Time { return p.capturedAt }

// Classifier evaluates the face rules. It is driven by a single scheduler
// goroutine; the mutex only protects reference replacement and resets from
// session teardown.
type Classifier struct {
	cfg    Config
	scheme landmarks.Scheme
	reg    *registry.Registry

	mu         sync.Mutex
	reference  *ReferenceProfile
	eyeClosed  bool
	blinkSeen  bool
	lastBlink  time.Time
	prevMotion []model.Point
}

// New creates a classifier writing its counters into reg.
func New(reg *registry.Registry, opts ...Option) *Classifier {
	c := &Classifier{
		cfg:    DefaultConfig(),
		scheme: landmarks.DefaultScheme(),
		reg:    reg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active thresholds.
func (c *Classifier) Config() Config { return c.cfg }

// CaptureReference builds the identity baseline from an enrollment mesh.
// It fails if a profile is already set or the mesh lacks identity points.
func (c *Classifier) CaptureReference(mesh model.Mesh, at time.Time) error {
	p, err := NewReferenceProfile(c.scheme.IdentityPoints(mesh), at)
	if err != nil {
		return err
	}
	return c.SetReference(p)
}

// SetReference installs p as the identity baseline.
func (c *Classifier) SetReference(p *ReferenceProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reference != nil {
		return ErrReferenceSet
	}
	c.reference = p
	return nil
}

// HasReference reports whether an identity baseline is installed.
func (c *Classifier) HasReference() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reference != nil
}

// ClearReference drops the identity baseline. Only session teardown calls it.
func (c *Classifier) ClearReference() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reference = nil
}

// Reset clears blink and motion tracking.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eyeClosed = false
	c.blinkSeen = false
	c.lastBlink = time.Time{}
	c.prevMotion = nil
}

// Classify evaluates every rule against s.
func (c *Classifier) Classify(s model.DetectionSample) []model.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var intents []model.Intent
	if in, ok := c.multiFace(s); ok {
		intents = append(intents, in)
	}

	var face *landmarks.Face
	if len(s.Faces) > 0 && len(s.Mesh) > 0 {
		f := c.scheme.Extract(s.Mesh)
		face = &f
	}

	if in, ok := c.gaze(s, face); ok {
		intents = append(intents, in)
	}
	if face == nil {
		return intents
	}
	intents = append(intents, c.liveness(s.Timestamp, face)...)
	if in, ok := c.identity(face); ok {
		intents = append(intents, in)
	}
	return intents
}

func (c *Classifier) multiFace(s model.DetectionSample) (model.Intent, bool) {
	var faces []map[string]any
	for _, f := range s.Faces {
		if f.Confidence < c.cfg.MultiFaceFloor {
			continue
		}
		faces = append(faces, map[string]any{
			"box":        f.Box,
			"confidence": f.Confidence,
		})
	}
	if len(faces) <= 1 {
		return model.Intent{}, false
	}
	return model.Intent{
		Kind:         model.KindMultiFace,
		WantSnapshot: true,
		Metadata: map[string]any{
			"faceCount": len(faces),
			"faces":     faces,
		},
	}, true
}

func (c *Classifier) gaze(s model.DetectionSample, face *landmarks.Face) (model.Intent, bool) {
	var reading model.GazeReading
	reason := ReasonGazeDiverted
	switch {
	case len(s.Faces) == 0:
		reading = model.GazeReading{Direction: model.DirectionAway, Confidence: 0.5}
		reason = ReasonNoFaceDetected
	case face == nil:
		reading = model.GazeReading{Direction: model.DirectionAway, Confidence: 0.5}
		reason = ReasonNoFaceMesh
	default:
		reading = geometry.GazeDirection(face.LeftIris, face.RightIris, face.LeftCorners, face.RightCorners)
	}

	if reading.Direction == model.DirectionCenter {
		c.reg.Reset(model.KindGazeAway)
		return model.Intent{}, false
	}
	n := c.reg.Bump(model.KindGazeAway)
	if n < c.cfg.GazeThreshold {
		return model.Intent{}, false
	}
	c.reg.Reset(model.KindGazeAway)
	return model.Intent{
		Kind:         model.KindGazeAway,
		WantSnapshot: true,
		Metadata: map[string]any{
			"direction":        string(reading.Direction),
			"confidence":       reading.Confidence,
			"reason":           reason,
			"consecutiveTicks": n,
			"durationSeconds":  float64(n) * c.cfg.TickInterval.Seconds(),
		},
	}, true
}

func (c *Classifier) liveness(now time.Time, face *landmarks.Face) []model.Intent {
	var out []model.Intent

	// An eye with a missing contour point reads as undetermined and leaves
	// the blink state alone.
	if len(face.LeftEye) == landmarks.EyeContourSize && len(face.RightEye) == landmarks.EyeContourSize {
		ear := (geometry.EyeAspectRatio(face.LeftEye) + geometry.EyeAspectRatio(face.RightEye)) / 2
		switch {
		case ear < c.cfg.BlinkEARThreshold:
			c.eyeClosed = true
		case c.eyeClosed:
			c.eyeClosed = false
			c.blinkSeen = true
			c.lastBlink = now
		}
	}
	// No check before the first blink: a session that has not blinked yet
	// is not evidence of a photo.
	if c.blinkSeen {
		if since := now.Sub(c.lastBlink); since > c.cfg.NoBlinkTimeout {
			out = append(out, model.Intent{
				Kind:         model.KindSpoofDetected,
				WantSnapshot: true,
				Metadata: map[string]any{
					"reason":            ReasonNoBlink,
					"secondsSinceBlink": since.Seconds(),
				},
			})
		}
	}

	if face.Motion != nil {
		prev := c.prevMotion
		c.prevMotion = face.Motion
		if prev != nil {
			delta := geometry.HeadMovementDelta(face.Motion, prev)
			avg, full := c.reg.PushMovement(delta)
			if full && avg < c.cfg.HeadMovementThreshold {
				c.reg.ClearMovement()
				out = append(out, model.Intent{
					Kind:         model.KindSpoofDetected,
					WantSnapshot: true,
					Metadata: map[string]any{
						"reason":          ReasonStaticHead,
						"averageMovement": avg,
					},
				})
			}
		}
	}
	return out
}

func (c *Classifier) identity(face *landmarks.Face) (model.Intent, bool) {
	if c.reference == nil {
		return model.Intent{}, false
	}
	current, ok := geometry.NormalizeIdentityLandmarks(face.Identity)
	if !ok {
		// not enough of the face to compare; leave the streak untouched
		return model.Intent{}, false
	}
	similarity := geometry.FaceSimilarity(c.reference.points, current)
	if similarity >= c.cfg.MismatchThreshold {
		c.reg.Reset(model.KindFaceMismatch)
		return model.Intent{}, false
	}
	n := c.reg.Bump(model.KindFaceMismatch)
	if n < c.cfg.MismatchCount {
		return model.Intent{}, false
	}
	c.reg.Reset(model.KindFaceMismatch)
	return model.Intent{
		Kind:         model.KindFaceMismatch,
		WantSnapshot: true,
		Metadata: map[string]any{
			"similarity":            similarity,
			"threshold":             c.cfg.MismatchThreshold,
			"consecutiveMismatches": n,
		},
	}, true
}
