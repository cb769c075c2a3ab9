package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/domain/classifier"
	"github.com/okian/vigil/internal/domain/environment"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/registry"
	"github.com/okian/vigil/pkg/clock"
	"github.com/okian/vigil/pkg/logger"
)

// Devices are the external collaborators of one session.
type Devices struct {
	Camera      Camera
	Tracker     FaceTracker
	Snapshotter Snapshotter
	// Viewport feeds the devtools heuristic; nil disables polling.
	Viewport environment.ViewportProbe
}

// SessionOption applies a configuration option to a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	id       string
	clock    clock.Clock
	observer Observer
	logger   logger.Logger
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(c *sessionConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithClock sets the time source for the dispatcher, monitor and scheduler.
func WithClock(clk clock.Clock) SessionOption {
	return func(c *sessionConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithSessionObserver sets the local violation callback.
func WithSessionObserver(o Observer) SessionOption {
	return func(c *sessionConfig) { c.observer = o }
}

// WithSessionLogger sets the base logger of the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Session wires the detection pipeline of one candidate in one assessment.
type Session struct {
	id        string
	identity  Identity
	createdAt time.Time
	devices   Devices
	clock     clock.Clock
	logger    logger.Logger

	registry   *registry.Registry
	classifier *classifier.Classifier
	dispatcher *Dispatcher
	monitor    *environment.Monitor
	scheduler  *Scheduler
}

// SessionStats is a point-in-time view of a session.
type SessionStats struct {
	ID           string         `json:"id"`
	SubjectID    string         `json:"subjectId"`
	AssessmentID string         `json:"assessmentId"`
	CreatedAt    time.Time      `json:"createdAt"`
	Sampling     bool           `json:"sampling"`
	Enrolled     bool           `json:"enrolled"`
	Hidden       bool           `json:"hidden"`
	Fullscreen   bool           `json:"fullscreen"`
	Violations   map[string]int `json:"violations"`
}

// NewSession builds a session. q receives dispatched violations and may be nil.
func NewSession(identity Identity, dev Devices, settings Settings, q Enqueuer, opts ...SessionOption) *Session {
	cfg := sessionConfig{id: uuid.NewString(), clock: clock.Real()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get()
	}

	s := &Session{
		id:        cfg.id,
		identity:  identity,
		createdAt: cfg.clock.Now(),
		devices:   dev,
		clock:     cfg.clock,
		logger:    cfg.logger.Named("session"),
	}

	s.registry = registry.New(registry.WithWindowSize(settings.HeadMovementWindow))
	cc := settings.Classifier
	if cc.TickInterval <= 0 {
		cc.TickInterval = settings.TickInterval
	}
	s.classifier = classifier.New(s.registry, classifier.WithConfig(cc))

	dopts := []DispatcherOption{
		WithThrottles(settings.CameraThrottle, settings.EnvironmentThrottle),
		WithObserver(cfg.observer),
		WithDispatcherClock(cfg.clock),
		WithDispatcherLogger(cfg.logger.Named("dispatcher")),
	}
	if settings.Snapshots && dev.Snapshotter != nil {
		dopts = append(dopts, WithSnapshotter(dev.Snapshotter))
	}
	s.dispatcher = NewDispatcher(identity, s.registry, q, dopts...)

	mopts := []environment.Option{
		environment.WithClock(cfg.clock),
		environment.WithTabDebounce(settings.TabDebounce),
		environment.WithLogger(cfg.logger.Named("environment")),
	}
	if settings.DevtoolsDetection && dev.Viewport != nil {
		mopts = append(mopts, environment.WithDevtoolsDetection(dev.Viewport, settings.DevtoolsInterval, settings.DevtoolsThreshold))
	}
	s.monitor = environment.New(s.dispatcher, mopts...)

	s.scheduler = NewScheduler(dev.Camera, dev.Tracker, s.classifier, s.dispatcher, settings.TickInterval, cfg.clock, cfg.logger.Named("scheduler"))
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Identity returns the candidate and assessment ids.
func (s *Session) Identity() Identity { return s.identity }

// Environment returns the browser signal monitor.
func (s *Session) Environment() *environment.Monitor { return s.monitor }

// Dispatcher returns the session's violation dispatcher.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Start begins sampling and devtools polling.
func (s *Session) Start(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}
	s.monitor.Start(ctx)
	return nil
}

// Stop halts sampling and polling. Detection state is kept so a later Start
// resumes with the same counters and reference profile.
func (s *Session) Stop() {
	s.scheduler.Stop()
	s.monitor.Stop()
}

// Teardown stops the session and clears every piece of per-session state,
// including the reference profile.
func (s *Session) Teardown() {
	s.Stop()
	s.registry.ResetAll()
	s.classifier.Reset()
	s.classifier.ClearReference()
	s.monitor.Reset()
}

// Enroll captures the identity reference from the current frame. It fails
// if a reference is already set; Teardown clears it.
func (s *Session) Enroll(ctx context.Context) error {
	frame, ok := s.devices.Camera.Frame()
	if !ok {
		return ErrNoFrame
	}
	faces, err := s.devices.Tracker.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	primary, ok := model.DetectionSample{Faces: faces}.Primary()
	if !ok {
		return ErrNoFace
	}
	mesh, err := s.devices.Tracker.Landmarks(ctx, frame, primary)
	if err != nil {
		return fmt.Errorf("landmarks: %w", err)
	}
	if err := s.classifier.CaptureReference(mesh, s.clock.Now()); err != nil {
		return fmt.Errorf("capture reference: %w", err)
	}
	s.logger.Info(ctx, "reference profile captured",
		logger.String("session", s.id),
		logger.String("subject", s.identity.SubjectID),
	)
	return nil
}

// Stats returns a snapshot of the session state.
func (s *Session) Stats() SessionStats {
	env := s.monitor.State()
	counts := s.dispatcher.Counts()
	violations := make(map[string]int, len(counts))
	for k, n := range counts {
		violations[k.String()] = n
	}
	return SessionStats{
		ID:           s.id,
		SubjectID:    s.identity.SubjectID,
		AssessmentID: s.identity.AssessmentID,
		CreatedAt:    s.createdAt,
		Sampling:     s.scheduler.Running(),
		Enrolled:     s.classifier.HasReference(),
		Hidden:       env.Hidden,
		Fullscreen:   env.Fullscreen,
		Violations:   violations,
	}
}
