package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/okian/vigil/internal/adapters/facestream"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/environment"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Inbound message types.
const (
	msgStart             = "start"
	msgStop              = "stop"
	msgSample            = "sample"
	msgVisibility        = "visibility"
	msgBlur              = "blur"
	msgFocus             = "focus"
	msgFullscreen        = "fullscreen"
	msgFullscreenRefused = "fullscreen_refused"
	msgViewport          = "viewport"
	msgEnroll            = "enroll"
	msgCopy              = "copy"
	msgPaste             = "paste"
	msgContextMenu       = "contextmenu"
	msgScreenshot        = "screenshot"
	msgIdle              = "idle"
)

// Outbound message types.
const (
	outSession   = "session"
	outViolation = "violation"
	outAck       = "ack"
	outError     = "error"
)

// browserKinds maps browser-only signals to the violation they report.
var browserKinds = map[string]model.Kind{
	msgCopy:        model.KindCopyRestrict,
	msgPaste:       model.KindPasteAttempt,
	msgContextMenu: model.KindRightClick,
	msgScreenshot:  model.KindScreenshotAttempt,
	msgIdle:        model.KindIdle,
}

// messageLabel bounds the metric label set to the known message types.
func messageLabel(t string) string {
	switch t {
	case msgStart, msgStop, msgSample, msgVisibility, msgBlur, msgFocus,
		msgFullscreen, msgFullscreenRefused, msgViewport, msgEnroll:
		return t
	}
	if _, ok := browserKinds[t]; ok {
		return t
	}
	return "unknown"
}

// ClientMessage is one signal sent by the candidate's browser.
type ClientMessage struct {
	Type string `json:"type"`

	// start
	Camera       string `json:"camera,omitempty"`
	CameraError  string `json:"cameraError,omitempty"`
	TrackerError string `json:"trackerError,omitempty"`

	Hidden     *bool                 `json:"hidden,omitempty"`
	Fullscreen *bool                 `json:"fullscreen,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	Viewport   *environment.Viewport `json:"viewport,omitempty"`
	Sample     *facestream.Sample    `json:"sample,omitempty"`
	Metadata   map[string]any        `json:"metadata,omitempty"`
}

// ServerMessage is pushed back to the browser.
type ServerMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	Ack       string            `json:"ack,omitempty"`
	Violation *model.Payload    `json:"violation,omitempty"`
	Stats     *app.SessionStats `json:"stats,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// StreamHandler serves the browser signal websocket. Each connection owns
// one session for the (subjectId, assessmentId) pair in its query string.
type StreamHandler struct {
	sessions   Sessions
	upgrader   websocket.Upgrader
	streamOpts []facestream.Option
	logger     logger.Logger
	readLimit  int64
	pongWait   time.Duration
	msgRate    rate.Limit
	msgBurst   int
}

// NewStreamHandler creates a websocket handler backed by sessions.
func NewStreamHandler(sessions Sessions, opts ...StreamOption) *StreamHandler {
	h := &StreamHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: defaultReadLimit,
		pongWait:  defaultPongWait,
		msgRate:   defaultMessageRate,
		msgBurst:  defaultMessageBurst,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("stream")
	}
	return h
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) send(v ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteTimeout))
}

// HandleStream handles GET /sessions/ws?subjectId=&assessmentId=.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	identity := app.Identity{
		SubjectID:    r.URL.Query().Get("subjectId"),
		AssessmentID: r.URL.Query().Get("assessmentId"),
	}
	if !identity.Complete() {
		writeError(w, http.StatusBadRequest, "invalid_identity",
			fmt.Errorf("%w: subjectId and assessmentId are required", ErrBadRequest))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws}
	stream := facestream.New(h.streamOpts...)
	observer := func(ctx context.Context, v model.Violation) {
		p := v.Payload()
		if err := c.send(ServerMessage{Type: outViolation, Violation: &p}); err != nil {
			h.logger.Debug(ctx, "violation push failed", logger.Error(err))
		}
	}

	sess, err := h.sessions.OpenSession(ctx, identity, app.Devices{
		Camera:      stream,
		Tracker:     stream,
		Snapshotter: stream,
		Viewport:    stream,
	}, app.WithSessionObserver(observer))
	if err != nil {
		h.logger.Warn(ctx, "session rejected",
			logger.String("subject", identity.SubjectID),
			logger.String("assessment", identity.AssessmentID),
			logger.Error(err),
		)
		_ = c.send(ServerMessage{Type: outError, Error: err.Error()})
		c.mu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(defaultWriteTimeout))
		c.mu.Unlock()
		return
	}
	defer func() {
		if err := h.sessions.CloseSession(context.WithoutCancel(ctx), sess.ID()); err != nil {
			h.logger.Warn(ctx, "session close failed", logger.String("session", sess.ID()), logger.Error(err))
		}
	}()

	log := h.logger.Named(sess.ID())
	log.Info(ctx, "websocket client connected",
		logger.String("subject", identity.SubjectID),
		logger.String("assessment", identity.AssessmentID),
	)
	if err := c.send(ServerMessage{Type: outSession, SessionID: sess.ID()}); err != nil {
		return
	}

	ws.SetReadLimit(h.readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	go h.keepAlive(ctx, c)

	limiter := rate.NewLimiter(h.msgRate, h.msgBurst)
	for {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			log.Info(ctx, "websocket client disconnected", logger.Error(err))
			return
		}
		if !limiter.Allow() {
			metrics.RecordStreamMessage("rate_limited")
			if err := c.send(ServerMessage{Type: outError, Ack: msg.Type, Error: ErrRateLimited.Error()}); err != nil {
				return
			}
			continue
		}
		metrics.RecordStreamMessage(messageLabel(msg.Type))

		reply, err := h.handle(ctx, sess, stream, &msg)
		if err != nil {
			log.Debug(ctx, "message rejected", logger.String("type", msg.Type), logger.Error(err))
			reply = &ServerMessage{Type: outError, Ack: msg.Type, Error: err.Error()}
		}
		if reply == nil {
			continue
		}
		if err := c.send(*reply); err != nil {
			return
		}
	}
}

func (h *StreamHandler) keepAlive(ctx context.Context, c *conn) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// handle applies one browser message to the session. A nil reply means the
// message needs no acknowledgement.
func (h *StreamHandler) handle(ctx context.Context, sess *app.Session, stream *facestream.Stream, msg *ClientMessage) (*ServerMessage, error) {
	env := sess.Environment()

	if kind, ok := browserKinds[msg.Type]; ok {
		return nil, env.Report(ctx, kind, msg.Metadata)
	}

	switch msg.Type {
	case msgStart:
		if msg.Camera != "" {
			stream.SetCameraStatus(facestream.CameraStatus(msg.Camera), msg.CameraError)
		}
		stream.SetTrackerFailed(msg.TrackerError)
		if err := sess.Start(ctx); err != nil {
			return nil, err
		}
		return h.ack(msg.Type, sess), nil

	case msgStop:
		sess.Stop()
		return h.ack(msg.Type, sess), nil

	case msgSample:
		if msg.Sample == nil {
			return nil, fmt.Errorf("%w: sample is required", ErrBadRequest)
		}
		return nil, stream.Push(msg.Sample)

	case msgVisibility:
		if msg.Hidden == nil {
			return nil, fmt.Errorf("%w: hidden is required", ErrBadRequest)
		}
		env.VisibilityChanged(ctx, *msg.Hidden)
		return nil, nil

	case msgBlur:
		env.Blurred(ctx)
		return nil, nil

	case msgFocus:
		env.Focused(ctx)
		return nil, nil

	case msgFullscreen:
		if msg.Fullscreen == nil {
			return nil, fmt.Errorf("%w: fullscreen is required", ErrBadRequest)
		}
		env.FullscreenChanged(ctx, *msg.Fullscreen)
		return nil, nil

	case msgFullscreenRefused:
		env.FullscreenRefused(ctx, msg.Reason)
		return nil, nil

	case msgViewport:
		if msg.Viewport == nil {
			return nil, fmt.Errorf("%w: viewport is required", ErrBadRequest)
		}
		stream.SetViewport(*msg.Viewport)
		return nil, nil

	case msgEnroll:
		if err := sess.Enroll(ctx); err != nil {
			return nil, fmt.Errorf("enroll: %w", err)
		}
		return h.ack(msg.Type, sess), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

func (h *StreamHandler) ack(what string, sess *app.Session) *ServerMessage {
	stats := sess.Stats()
	return &ServerMessage{Type: outAck, Ack: what, Stats: &stats}
}
