// Package worker drains the delivery queue into the configured transport.
//
// Delivery is fire-and-forget: a failed submission is logged and counted,
// never retried, and never reported back to the session that raised it.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Transport persists one violation. Implementations must be safe for
// concurrent use by several workers.
type Transport interface {
	Name() string
	Submit(ctx context.Context, v model.Violation) error
}

// Queue defines how workers receive violations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Violation
}

// Worker delivers violations read off the queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, the queue is closed,
	// or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	transport Transport
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(queue Queue, transport Transport, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		transport: transport,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case v, ok := <-events:
			if !ok {
				return
			}
			if err := w.deliver(ctx, v); err != nil {
				w.logger.Error(ctx, "violation delivery failed",
					logger.String("violation_id", v.ID),
					logger.String("kind", v.Kind.String()),
					logger.String("assessment_id", v.AssessmentID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver submits a single violation and records its outcome.
func (w *InMemoryWorker) deliver(ctx context.Context, v model.Violation) error { //nolint:gocritic // hugeParam: Violation is passed by value for channel semantics
	sink := w.transport.Name()
	start := time.Now()
	err := w.transport.Submit(ctx, v)
	metrics.RecordDeliveryLatency(sink, float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordDeliveryError(sink)
		metrics.RecordErrorByComponent("worker", "submit")
		return fmt.Errorf("submit %s to %s: %w", v.ID, sink, err)
	}
	metrics.RecordDelivery(sink)
	return nil
}

// Pool manages multiple workers sharing one queue and transport.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count selects the default.
func NewPool(workerCount int, queue Queue, transport Transport) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, transport, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool. Cancelling ctx does not stop them:
// delivery ends only through Shutdown, after the queue has drained.
func (p *Pool) Start(ctx context.Context) {
	runCtx := context.WithoutCancel(ctx)
	for _, worker := range p.workers {
		go worker.Run(runCtx)
	}
}

// Shutdown closes the queue, lets the workers drain what is left, and waits
// for them up to ctx's deadline or the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
