package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	frame   Frame
	ready   bool
	opened  int
	closed  int

	// closing is signalled when Close is entered; Close then waits for
	// closeGate. Both are optional.
	closing   chan struct{}
	closeGate chan struct{}
}

func (c *fakeCamera) Open(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.opened++
	return nil
}

func (c *fakeCamera) Frame() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame, c.ready
}

func (c *fakeCamera) Close() error {
	if c.closing != nil {
		c.closing <- struct{}{}
	}
	if c.closeGate != nil {
		<-c.closeGate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeCamera) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened > c.closed
}

func (c *fakeCamera) closedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTracker struct {
	mu            sync.Mutex
	loadErr       error
	detectErr     error
	faces         []model.Face
	mesh          model.Mesh
	panicOnDetect bool
	detectCalls   int
	landmarkCalls int
}

func (t *fakeTracker) Load(context.Context) error { return t.loadErr }

func (t *fakeTracker) Detect(context.Context, Frame) ([]model.Face, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detectCalls++
	if t.panicOnDetect {
		t.panicOnDetect = false
		panic("model crashed")
	}
	return t.faces, t.detectErr
}

func (t *fakeTracker) Landmarks(context.Context, Frame, model.Face) (model.Mesh, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.landmarkCalls++
	return t.mesh, nil
}

func (t *fakeTracker) calls() (detect, landmarks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detectCalls, t.landmarkCalls
}

type dispatched struct {
	kind     model.Kind
	metadata map[string]any
	snapshot bool
}

type recordingSink struct {
	mu  sync.Mutex
	got []dispatched
}

func (s *recordingSink) Dispatch(_ context.Context, kind model.Kind, metadata map[string]any, wantSnapshot bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, dispatched{kind: kind, metadata: metadata, snapshot: wantSnapshot})
}

func (s *recordingSink) events() []dispatched {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dispatched(nil), s.got...)
}

type violationLog struct {
	mu  sync.Mutex
	got []model.Violation
}

func (l *violationLog) observe(_ context.Context, v model.Violation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, v)
}

func (l *violationLog) all() []model.Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Violation(nil), l.got...)
}

// gridMesh places every landmark of a 478-point mesh on a regular grid so
// the identity subset always normalizes.
func gridMesh() model.Mesh {
	mesh := make(model.Mesh, 478)
	for i := range mesh {
		mesh[i] = &model.Point{X: float64(i%25) * 4, Y: float64(i/25) * 4}
	}
	return mesh
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
