package app

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/registry"
	"github.com/okian/vigil/pkg/clock"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Default per-kind throttle intervals.
const (
	defaultCameraThrottle      = 5 * time.Second
	defaultEnvironmentThrottle = time.Second
)

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithThrottles sets the minimum interval between two violations of the same
// kind, for camera and environmental kinds respectively.
func WithThrottles(camera, environment time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if camera > 0 {
			d.cameraThrottle = camera
		}
		if environment > 0 {
			d.environmentThrottle = environment
		}
	}
}

// WithSnapshotter enables evidence capture for violations that ask for it.
func WithSnapshotter(s Snapshotter) DispatcherOption {
	return func(d *Dispatcher) { d.snapshotter = s }
}

// WithObserver sets the local callback.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observer = o }
}

// WithDispatcherClock sets the time source used for timestamps and throttling.
func WithDispatcherClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher turns declared violations into Violation records: it throttles
// per kind, attaches an optional snapshot, notifies the observer, and hands
// the record to the delivery queue.
type Dispatcher struct {
	identity            Identity
	registry            *registry.Registry
	queue               Enqueuer
	snapshotter         Snapshotter
	observer            Observer
	clock               clock.Clock
	cameraThrottle      time.Duration
	environmentThrottle time.Duration
	logger              logger.Logger

	mu     sync.Mutex
	counts map[model.Kind]int
}

// NewDispatcher creates a dispatcher for one session. q may be nil, in which
// case violations only reach the observer.
func NewDispatcher(identity Identity, reg *registry.Registry, q Enqueuer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		identity:            identity,
		registry:            reg,
		queue:               q,
		clock:               clock.Real(),
		cameraThrottle:      defaultCameraThrottle,
		environmentThrottle: defaultEnvironmentThrottle,
		counts:              make(map[model.Kind]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}
	return d
}

// Throttle returns the minimum interval applied to kind.
func (d *Dispatcher) Throttle(kind model.Kind) time.Duration {
	if kind.Environmental() {
		return d.environmentThrottle
	}
	return d.cameraThrottle
}

// Dispatch records one violation of kind unless it is throttled. It never
// blocks on delivery and never returns an error; failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, kind model.Kind, metadata map[string]any, wantSnapshot bool) {
	if !d.identity.Complete() {
		metrics.RecordViolationDropped("missing_identity")
		d.logger.Warn(ctx, "violation without session identity ignored", logger.String("kind", kind.String()))
		return
	}
	if !kind.Valid() {
		metrics.RecordViolationDropped("unknown_kind")
		d.logger.Warn(ctx, "unknown violation kind ignored", logger.String("kind", kind.String()))
		return
	}

	now := d.clock.Now()
	if !d.registry.ShouldEmit(kind, now, d.Throttle(kind)) {
		metrics.RecordViolationThrottled(kind.String())
		return
	}

	v := model.Violation{
		ID:           uuid.NewString(),
		Kind:         kind,
		Timestamp:    now,
		SubjectID:    d.identity.SubjectID,
		AssessmentID: d.identity.AssessmentID,
		Metadata:     maps.Clone(metadata),
	}
	if v.Metadata == nil {
		v.Metadata = map[string]any{}
	}
	if wantSnapshot && d.snapshotter != nil {
		img, err := d.snapshotter.Snapshot(ctx)
		if err != nil {
			metrics.RecordSnapshotError()
			d.logger.Warn(ctx, "snapshot failed, sending violation without it",
				logger.String("kind", kind.String()),
				logger.Error(err),
			)
		} else {
			v.Snapshot = img
		}
	}

	d.mu.Lock()
	d.counts[kind]++
	d.mu.Unlock()
	metrics.RecordViolationDetected(kind.String())

	if d.observer != nil {
		d.observer(ctx, v)
	}
	if d.queue == nil {
		return
	}
	if err := d.queue.Enqueue(ctx, v); err != nil {
		reason := "enqueue_failed"
		switch {
		case errors.Is(err, queue.ErrFull):
			reason = "queue_full"
		case errors.Is(err, queue.ErrClosed):
			reason = "queue_closed"
		}
		metrics.RecordViolationDropped(reason)
		d.logger.Warn(ctx, "violation not queued for delivery",
			logger.String("id", v.ID),
			logger.String("kind", kind.String()),
			logger.Error(err),
		)
	}
}

// Counts returns how many violations of each kind were dispatched.
func (d *Dispatcher) Counts() map[model.Kind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.counts)
}
