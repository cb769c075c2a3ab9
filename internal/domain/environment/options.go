package environment

import (
	"time"

	"github.com/okian/vigil/pkg/clock"
	"github.com/okian/vigil/pkg/logger"
)

// Default monitor configuration constants.
const (
	defaultTabDebounce       = 50 * time.Millisecond
	defaultDevtoolsInterval  = 2 * time.Second
	defaultDevtoolsThreshold = 160.0
)

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithClock sets the time source used for debounce and polling timers.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithTabDebounce sets how long the document must stay hidden before a
// TAB_SWITCH is reported.
func WithTabDebounce(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.tabDebounce = d
		}
	}
}

// WithDevtoolsDetection enables the viewport heuristic, polling probe every
// interval and flagging deltas above threshold.
func WithDevtoolsDetection(probe ViewportProbe, interval time.Duration, threshold float64) Option {
	return func(m *Monitor) {
		m.probe = probe
		if interval > 0 {
			m.devtoolsInterval = interval
		}
		if threshold > 0 {
			m.devtoolsThreshold = threshold
		}
	}
}

// WithLogger sets a custom logger for the monitor.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}
