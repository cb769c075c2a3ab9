// Package registry holds per-session violation state: consecutive-occurrence
// counters, the head-movement rolling window, and last-emission timestamps.
package registry

import (
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Default registry configuration constants.
const (
	defaultWindowSize = 10
)

// Registry is a session-scoped state container. All operations are total and
// safe for concurrent use; each kind is expected to be written by a single
// activity (scheduler or environment monitor).
type Registry struct {
	mu        sync.Mutex
	counters  map[model.Kind]int
	window    *RollingWindow
	lastEmits map[model.Kind]time.Time

	windowSize int
}

// New creates a registry with configuration options.
func New(opts ...Option) *Registry {
	r := &Registry{
		windowSize: defaultWindowSize,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.counters = make(map[model.Kind]int)
	r.lastEmits = make(map[model.Kind]time.Time)
	r.window = NewRollingWindow(r.windowSize)
	return r
}

// Bump increments the consecutive counter of kind and returns the new value.
func (r *Registry) Bump(kind model.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[kind]++
	return r.counters[kind]
}

// Reset sets the counter of kind back to zero.
func (r *Registry) Reset(kind model.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counters, kind)
}

// Count returns the current counter of kind.
func (r *Registry) Count(kind model.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[kind]
}

// PushMovement appends a head-movement magnitude to the rolling window and
// returns the window average and whether the window is at capacity.
func (r *Registry) PushMovement(v float64) (avg float64, full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window.Push(v)
	return r.window.Average(), r.window.Full()
}

// ClearMovement empties the rolling window.
func (r *Registry) ClearMovement() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window.Clear()
}

// MovementSamples returns the number of samples in the rolling window.
func (r *Registry) MovementSamples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.window.Len()
}

// ShouldEmit reports whether kind may fire at now given minInterval since its
// last emission. On true, now is recorded as the last emission. A timestamp
// earlier than the recorded one is treated as throttled.
func (r *Registry) ShouldEmit(kind model.Kind, now time.Time, minInterval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.lastEmits[kind]; ok && now.Sub(last) < minInterval {
		return false
	}
	r.lastEmits[kind] = now
	return true
}

// ResetAll clears every counter, the rolling window, and the throttle state.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = make(map[model.Kind]int)
	r.lastEmits = make(map[model.Kind]time.Time)
	r.window.Clear()
}
