package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// Multi fans a violation out to several sinks. Every sink is attempted even
// when an earlier one fails.
type Multi struct {
	sinks []worker.Transport
	name  string
}

// NewMulti combines sinks, skipping nil entries.
func NewMulti(sinks ...worker.Transport) *Multi {
	m := &Multi{}
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		m.sinks = append(m.sinks, s)
		names = append(names, s.Name())
	}
	m.name = strings.Join(names, "+")
	if m.name == "" {
		m.name = "none"
	}
	return m
}

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Name implements worker.Transport.
func (m *Multi) Name() string { return m.name }

// Submit implements worker.Transport.
func (m *Multi) Submit(ctx context.Context, v model.Violation) error { //nolint:gocritic // hugeParam: Violation is immutable and passed by value
	var errs []error
	for _, s := range m.sinks {
		if err := s.Submit(ctx, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Log writes each violation to the logger. It stands in when no remote sink
// is configured.
type Log struct {
	logger logger.Logger
}

// NewLog creates a logging sink.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Get().Named("transport-log")
	}
	return &Log{logger: l}
}

// Name implements worker.Transport.
func (l *Log) Name() string { return "log" }

// Submit implements worker.Transport.
func (l *Log) Submit(ctx context.Context, v model.Violation) error { //nolint:gocritic // hugeParam: Violation is immutable and passed by value
	l.logger.Info(ctx, "violation",
		logger.String("id", v.ID),
		logger.String("kind", v.Kind.String()),
		logger.String("assessment_id", v.AssessmentID),
		logger.String("user_id", v.SubjectID),
		logger.Any("metadata", v.Metadata),
		logger.Bool("snapshot", len(v.Snapshot) > 0),
	)
	return nil
}
