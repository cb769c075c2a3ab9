// Package environment tracks browser-level signals (visibility, window focus,
// fullscreen, viewport) and turns their transitions into violation intents.
//
// Handlers are called from whatever goroutine delivers browser events; the
// monitor serializes them internally. Emission happens outside the lock.
package environment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/clock"
	"github.com/okian/vigil/pkg/logger"
)

// Reasons attached to TAB_SWITCH.
const (
	ReasonVisibilityHidden = "visibilityHidden"
	ReasonBlurWhileHidden  = "blurWhileHidden"
)

// Sink receives declared environmental violations.
type Sink interface {
	Dispatch(ctx context.Context, kind model.Kind, metadata map[string]any, wantSnapshot bool)
}

// Viewport is the browser window geometry used by the devtools heuristic.
type Viewport struct {
	OuterWidth  float64 `json:"outerWidth"`
	InnerWidth  float64 `json:"innerWidth"`
	OuterHeight float64 `json:"outerHeight"`
	InnerHeight float64 `json:"innerHeight"`
}

// ViewportProbe returns the latest known viewport. ok is false when none has
// been reported yet.
type ViewportProbe interface {
	Viewport(ctx context.Context) (vp Viewport, ok bool)
}

// State is a snapshot of the monitor's view of the browser.
type State struct {
	Hidden          bool
	FocusLost       bool
	Fullscreen      bool
	FullscreenExits int
	TabSwitchArmed  bool
}

type emission struct {
	kind     model.Kind
	metadata map[string]any
}

// Monitor is the environmental state machine of one session.
type Monitor struct {
	sink   Sink
	clock  clock.Clock
	logger logger.Logger

	tabDebounce       time.Duration
	probe             ViewportProbe
	devtoolsInterval  time.Duration
	devtoolsThreshold float64

	mu              sync.Mutex
	hidden          bool
	focusLost       bool
	fullscreen      bool
	fullscreenExits int
	timers          map[model.Kind]clock.Timer
	polling         bool
	pollTimer       clock.Timer
}

// New creates a monitor that reports into sink.
func New(sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		sink:              sink,
		clock:             clock.Real(),
		tabDebounce:       defaultTabDebounce,
		devtoolsInterval:  defaultDevtoolsInterval,
		devtoolsThreshold: defaultDevtoolsThreshold,
		timers:            make(map[model.Kind]clock.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("environment")
	}
	return m
}

// State returns the current browser state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, armed := m.timers[model.KindTabSwitch]
	return State{
		Hidden:          m.hidden,
		FocusLost:       m.focusLost,
		Fullscreen:      m.fullscreen,
		FullscreenExits: m.fullscreenExits,
		TabSwitchArmed:  armed,
	}
}

// VisibilityChanged handles a document visibility transition. Going hidden
// arms the tab-switch debounce; becoming visible cancels it silently.
// Repeated hidden reports without a visible one in between are ignored.
func (m *Monitor) VisibilityChanged(ctx context.Context, hidden bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasHidden := m.hidden
	m.hidden = hidden
	if !hidden {
		m.cancelLocked(model.KindTabSwitch)
		return
	}
	// A repeated hidden report belongs to the switch already in progress.
	if wasHidden {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var t clock.Timer
	t = m.clock.AfterFunc(m.tabDebounce, func() {
		m.mu.Lock()
		current, armed := m.timers[model.KindTabSwitch]
		if !armed || current != t || !m.hidden {
			m.mu.Unlock()
			return
		}
		delete(m.timers, model.KindTabSwitch)
		m.mu.Unlock()
		m.emit(ctx, emission{kind: model.KindTabSwitch, metadata: map[string]any{"reason": ReasonVisibilityHidden}})
	})
	m.timers[model.KindTabSwitch] = t
}

// Blurred handles the window losing focus. While the document is visible it
// reports FOCUS_LOST once until Focused; while hidden it short-circuits the
// pending debounce and reports TAB_SWITCH immediately.
func (m *Monitor) Blurred(ctx context.Context) {
	m.mu.Lock()
	var out emission
	switch {
	case m.hidden:
		m.cancelLocked(model.KindTabSwitch)
		out = emission{kind: model.KindTabSwitch, metadata: map[string]any{"reason": ReasonBlurWhileHidden}}
	case !m.focusLost:
		m.focusLost = true
		out = emission{kind: model.KindFocusLost, metadata: map[string]any{}}
	}
	m.mu.Unlock()

	if out.kind != "" {
		m.emit(ctx, out)
	}
}

// Focused clears the focus-lost latch.
func (m *Monitor) Focused(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusLost = false
}

// FullscreenChanged handles a fullscreen transition. Repeated reports of the
// same state are ignored.
func (m *Monitor) FullscreenChanged(ctx context.Context, fullscreen bool) {
	m.mu.Lock()
	if fullscreen == m.fullscreen {
		m.mu.Unlock()
		return
	}
	m.fullscreen = fullscreen
	var out emission
	if fullscreen {
		out = emission{kind: model.KindFullscreenEnabled, metadata: map[string]any{}}
	} else {
		m.fullscreenExits++
		out = emission{kind: model.KindFullscreenExit, metadata: map[string]any{"exitCount": m.fullscreenExits}}
	}
	m.mu.Unlock()

	m.emit(ctx, out)
}

// FullscreenRefused reports that the browser rejected a fullscreen request.
func (m *Monitor) FullscreenRefused(ctx context.Context, reason string) {
	m.emit(ctx, emission{kind: model.KindFullscreenRefused, metadata: map[string]any{"reason": reason}})
}

// CheckDevtools applies the viewport heuristic to vp and reports
// DEVTOOLS_OPEN when either delta exceeds the threshold.
func (m *Monitor) CheckDevtools(ctx context.Context, vp Viewport) bool {
	dw := vp.OuterWidth - vp.InnerWidth
	dh := vp.OuterHeight - vp.InnerHeight
	if dw <= m.devtoolsThreshold && dh <= m.devtoolsThreshold {
		return false
	}
	m.emit(ctx, emission{kind: model.KindDevtoolsOpen, metadata: map[string]any{
		"widthDelta":  dw,
		"heightDelta": dh,
	}})
	return true
}

// Report forwards a browser-only signal (clipboard, context menu,
// screenshot key, idle) that carries no state of its own.
func (m *Monitor) Report(ctx context.Context, kind model.Kind, metadata map[string]any) error {
	if !kind.Environmental() {
		return fmt.Errorf("%w: %s", ErrNotEnvironmental, kind)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	m.emit(ctx, emission{kind: kind, metadata: metadata})
	return nil
}

// Start begins devtools polling when a probe is configured. It is a no-op
// otherwise or when already polling.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probe == nil || m.polling {
		return
	}
	m.polling = true
	m.schedulePollLocked(context.WithoutCancel(ctx))
}

func (m *Monitor) schedulePollLocked(ctx context.Context) {
	m.pollTimer = m.clock.AfterFunc(m.devtoolsInterval, func() {
		if vp, ok := m.probe.Viewport(ctx); ok {
			m.CheckDevtools(ctx, vp)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.polling {
			m.schedulePollLocked(ctx)
		}
	})
}

// Stop cancels devtools polling and any pending debounce. It is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polling = false
	if m.pollTimer != nil {
		m.pollTimer.Stop()
		m.pollTimer = nil
	}
	for k := range m.timers {
		m.cancelLocked(k)
	}
}

// Reset stops the monitor and forgets all browser state.
func (m *Monitor) Reset() {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden = false
	m.focusLost = false
	m.fullscreen = false
	m.fullscreenExits = 0
}

// cancelLocked stops and forgets the debounce timer of kind.
// Must be called with m.mu held.
func (m *Monitor) cancelLocked(kind model.Kind) {
	if t, ok := m.timers[kind]; ok {
		t.Stop()
		delete(m.timers, kind)
	}
}

func (m *Monitor) emit(ctx context.Context, e emission) {
	m.logger.Debug(ctx, "environment signal", logger.String("kind", string(e.kind)))
	m.sink.Dispatch(ctx, e.kind, e.metadata, false)
}
