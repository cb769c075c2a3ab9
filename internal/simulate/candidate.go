package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/vigil/internal/adapters/facestream"
	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/pkg/logger"
)

// candidate is one simulated browser.
type candidate struct {
	subjectID string
	scenario  Scenario
	cfg       *Config
	log       logger.Logger

	mu         sync.Mutex
	violations map[string]int
	samples    int
	signals    int
}

func newCandidate(subjectID string, scenario Scenario, cfg *Config) *candidate {
	return &candidate{
		subjectID:  subjectID,
		scenario:   scenario,
		cfg:        cfg,
		log:        logger.Get().Named("candidate"),
		violations: make(map[string]int),
	}
}

// run connects, streams the scenario for cfg.Duration and disconnects.
func (c *candidate) run(ctx context.Context, client *Client) Result {
	res := Result{SubjectID: c.subjectID, Scenario: c.scenario}

	ws, err := client.Dial(ctx, c.subjectID, c.cfg.AssessmentID)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer ws.Close()

	var hello api.ServerMessage
	_ = ws.SetReadDeadline(time.Now().Add(c.cfg.Timeout))
	if err := ws.ReadJSON(&hello); err != nil || hello.Type != "session" {
		res.Error = fmt.Errorf("%w: %v %q", ErrHandshake, err, hello.Error).Error()
		return res
	}
	_ = ws.SetReadDeadline(time.Time{})
	res.SessionID = hello.SessionID

	done := make(chan struct{})
	go c.receive(ctx, ws, done)

	if err := c.stream(ctx, ws); err != nil {
		res.Error = err.Error()
	}

	time.Sleep(drainDelay)
	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	select {
	case <-done:
	case <-time.After(c.cfg.Timeout):
	}

	c.mu.Lock()
	res.Violations = c.violations
	c.mu.Unlock()
	return res
}

// stream sends start, the scenario script interleaved with samples, then stop.
func (c *candidate) stream(ctx context.Context, ws *websocket.Conn) error {
	if err := c.send(ws, api.ClientMessage{Type: "start", Camera: string(facestream.CameraGranted)}); err != nil {
		return err
	}

	script := c.scenario.script()
	ticker := time.NewTicker(c.cfg.SampleInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.cfg.Duration)
	defer deadline.Stop()

	var nextStep time.Time
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return c.send(ws, api.ClientMessage{Type: "stop"})
		case now := <-ticker.C:
			if err := c.send(ws, api.ClientMessage{Type: "sample", Sample: c.scenario.sample(n)}); err != nil {
				return err
			}
			c.mu.Lock()
			c.samples++
			c.mu.Unlock()

			if len(script) > 0 && !now.Before(nextStep) {
				st := script[0]
				script = script[1:]
				if err := c.send(ws, st.msg); err != nil {
					return err
				}
				c.mu.Lock()
				c.signals++
				c.mu.Unlock()
				nextStep = now.Add(st.pause)
			}
		}
	}
}

// receive collects pushed violations until the connection closes.
func (c *candidate) receive(ctx context.Context, ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		var msg api.ServerMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "violation":
			if msg.Violation == nil {
				continue
			}
			c.mu.Lock()
			c.violations[msg.Violation.EventType]++
			c.mu.Unlock()
			if c.cfg.Verbose {
				c.log.Info(ctx, "violation received",
					logger.String("subject", c.subjectID),
					logger.String("kind", msg.Violation.EventType),
				)
			}
		case "error":
			c.log.Warn(ctx, "server rejected message",
				logger.String("subject", c.subjectID),
				logger.String("message", msg.Ack),
				logger.String("error", msg.Error),
			)
		}
	}
}

// send writes one message. Only the streaming goroutine writes.
func (c *candidate) send(ws *websocket.Conn, msg api.ClientMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	if err := ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *candidate) counts() (samples, signals int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples, c.signals
}
