// Package app wires the proctoring pipeline: the per-session scheduler,
// classifier, environmental monitor and dispatcher, plus the shared delivery
// queue and worker pool behind them.
package app

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Default service configuration.
const (
	defaultWorkerCount = 4
	defaultQueueSize   = 10000
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the delivery queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSettings sets the settings applied to every new session.
func WithSettings(settings Settings) Option {
	return func(s *Service) { s.settings = settings }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service owns every open session and the delivery pipeline they share.
type Service struct {
	mu sync.RWMutex

	transport worker.Transport
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	workerCount int
	queueSize   int
	settings    Settings

	sessions   map[string]*Session
	byIdentity map[Identity]string

	started bool
	logger  logger.Logger
}

// New constructs a Service delivering through transport.
func New(transport worker.Transport, opts ...Option) *Service {
	s := &Service{
		transport:   transport,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
		settings:    DefaultSettings(),
		sessions:    make(map[string]*Session),
		byIdentity:  make(map[Identity]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the delivery queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.transport)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "proctoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("transport", s.transport.Name()),
	)
	return nil
}

// Stop tears down every session and drains the delivery queue.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.byIdentity = make(map[Identity]string)
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping proctoring service", logger.Int("sessions", len(sessions)))
	for _, sess := range sessions {
		sess.Teardown()
	}
	metrics.UpdateSessionsActive(0)

	return pool.Shutdown(ctx)
}

// OpenSession registers a new session for identity. The session is not
// started; the caller starts it once its devices are ready.
func (s *Service) OpenSession(ctx context.Context, identity Identity, dev Devices, opts ...SessionOption) (*Session, error) {
	if !identity.Complete() {
		return nil, ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrServiceStopped
	}
	if _, exists := s.byIdentity[identity]; exists {
		return nil, ErrSessionExists
	}

	opts = append([]SessionOption{WithSessionLogger(s.logger)}, opts...)
	sess := NewSession(identity, dev, s.settings, s.queue, opts...)
	s.sessions[sess.ID()] = sess
	s.byIdentity[identity] = sess.ID()
	metrics.UpdateSessionsActive(len(s.sessions))

	s.logger.Info(ctx, "session opened",
		logger.String("session", sess.ID()),
		logger.String("subject", identity.SubjectID),
		logger.String("assessment", identity.AssessmentID),
	)
	return sess, nil
}

// Session looks up an open session by id.
func (s *Service) Session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// CloseSession tears a session down and forgets it.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		delete(s.byIdentity, sess.Identity())
		metrics.UpdateSessionsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Teardown()
	s.logger.Info(ctx, "session closed", logger.String("session", id))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"transport":   s.transport.Name(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
	}
	s.mu.RUnlock()

	sessionStats := make([]SessionStats, 0, len(sessions))
	for _, sess := range sessions {
		sessionStats = append(sessionStats, sess.Stats())
	}
	sort.Slice(sessionStats, func(i, j int) bool {
		return sessionStats[i].CreatedAt.Before(sessionStats[j].CreatedAt) ||
			(sessionStats[i].CreatedAt.Equal(sessionStats[j].CreatedAt) && sessionStats[i].ID < sessionStats[j].ID)
	})
	stats["activeSessions"] = len(sessionStats)
	stats["sessions"] = sessionStats
	return stats
}
