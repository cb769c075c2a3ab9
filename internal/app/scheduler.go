package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/internal/domain/classifier"
	"github.com/okian/vigil/internal/domain/environment"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/clock"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

const defaultTickInterval = 700 * time.Millisecond

// Tick skip reasons reported to metrics.
const (
	skipBusy        = "busy"
	skipNoFrame     = "no_frame"
	skipDetectError = "detect_error"
	skipStale       = "stale"
	skipPanic       = "panic"
)

// Scheduler drives one detection tick per interval while running. Ticks never
// overlap: a tick that fires while the previous one is still in flight is
// dropped, not queued.
type Scheduler struct {
	camera     Camera
	tracker    FaceTracker
	classifier *classifier.Classifier
	sink       environment.Sink
	interval   time.Duration
	clock      clock.Clock
	logger     logger.Logger

	busy       atomic.Bool
	generation atomic.Uint64

	// lifecycle serializes Start and Stop so the camera is released before
	// another Start can open it.
	lifecycle sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(camera Camera, tracker FaceTracker, c *classifier.Classifier, sink environment.Sink, interval time.Duration, clk clock.Clock, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Get().Named("scheduler")
	}
	return &Scheduler{
		camera:     camera,
		tracker:    tracker,
		classifier: c,
		sink:       sink,
		interval:   interval,
		clock:      clk,
		logger:     log,
	}
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start opens the camera, loads the tracker, and begins ticking. On failure
// it reports CAMERA_DENIED or CAMERA_ERROR, leaves the scheduler stopped, and
// returns the wrapped cause. Calling Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	if err := s.camera.Open(ctx); err != nil {
		s.mu.Unlock()
		kind := model.KindCameraError
		if errors.Is(err, ErrPermissionDenied) {
			kind = model.KindCameraDenied
		}
		s.logger.Error(ctx, "camera acquisition failed", logger.String("kind", kind.String()), logger.Error(err))
		s.sink.Dispatch(ctx, kind, map[string]any{"error": err.Error()}, false)
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	if err := s.tracker.Load(ctx); err != nil {
		if cerr := s.camera.Close(); cerr != nil {
			s.logger.Warn(ctx, "camera close failed", logger.Error(cerr))
		}
		s.mu.Unlock()
		s.logger.Error(ctx, "face tracker failed to load", logger.Error(err))
		s.sink.Dispatch(ctx, model.KindCameraError, map[string]any{"error": err.Error(), "stage": "tracker"}, false)
		return fmt.Errorf("%w: %w", ErrTrackerUnavailable, err)
	}

	gen := s.generation.Add(1)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(loopCtx, gen, s.done)
	s.mu.Unlock()

	s.logger.Info(ctx, "sampling started", logger.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and releases the camera. Results of a tick still in
// flight are discarded. It is idempotent and safe after a failed Start.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.generation.Add(1)
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	if err := s.camera.Close(); err != nil {
		s.logger.Warn(context.Background(), "camera close failed", logger.Error(err))
	}
	s.logger.Info(context.Background(), "sampling stopped")
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.tick(ctx, gen)
		}
	}
}

// tick runs one detection pass for generation gen.
func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordTickSkipped(skipBusy)
		return
	}
	defer s.busy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordTickSkipped(skipPanic)
			s.logger.Error(ctx, "tick panicked", logger.Any("panic", r))
		}
	}()

	start := time.Now()
	frame, ok := s.camera.Frame()
	if !ok {
		metrics.RecordTickSkipped(skipNoFrame)
		return
	}

	faces, err := s.tracker.Detect(ctx, frame)
	if err != nil {
		metrics.RecordTickSkipped(skipDetectError)
		s.logger.Warn(ctx, "face detection failed", logger.Error(err))
		return
	}

	sample := model.DetectionSample{Timestamp: s.clock.Now(), Faces: faces}
	if primary, ok := sample.Primary(); ok {
		mesh, err := s.tracker.Landmarks(ctx, frame, primary)
		if err != nil {
			s.logger.Debug(ctx, "landmark extraction failed", logger.Error(err))
			mesh = nil
		}
		sample.Mesh = mesh
	}

	if s.generation.Load() != gen {
		metrics.RecordTickSkipped(skipStale)
		return
	}
	intents := s.classifier.Classify(sample)
	if s.generation.Load() != gen {
		metrics.RecordTickSkipped(skipStale)
		return
	}
	dctx := context.WithoutCancel(ctx)
	for _, in := range intents {
		s.sink.Dispatch(dctx, in.Kind, in.Metadata, in.WantSnapshot)
	}
	metrics.RecordTick(float64(time.Since(start).Milliseconds()))
}
