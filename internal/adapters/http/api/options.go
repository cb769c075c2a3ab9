package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/vigil/internal/adapters/facestream"
	"github.com/okian/vigil/pkg/logger"
)

const (
	defaultReadLimit    = 1 << 20
	defaultPongWait     = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultMessageRate  = 50
	defaultMessageBurst = 100
)

// StreamOption applies a configuration option to the StreamHandler.
type StreamOption func(*StreamHandler)

// WithStreamLogger sets the handler logger.
func WithStreamLogger(l logger.Logger) StreamOption {
	return func(h *StreamHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithReadLimit caps the size of a single inbound message in bytes.
func WithReadLimit(n int64) StreamOption {
	return func(h *StreamHandler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithPongWait sets how long a silent client is kept. Pings go out at
// nine tenths of this interval.
func WithPongWait(d time.Duration) StreamOption {
	return func(h *StreamHandler) {
		if d > 0 {
			h.pongWait = d
		}
	}
}

// WithCheckOrigin sets the websocket origin policy. The default accepts
// every origin.
func WithCheckOrigin(fn func(r *http.Request) bool) StreamOption {
	return func(h *StreamHandler) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithStreamOptions sets the options of each connection's facestream.
func WithStreamOptions(opts ...facestream.Option) StreamOption {
	return func(h *StreamHandler) {
		h.streamOpts = append(h.streamOpts, opts...)
	}
}

// WithMessageRate caps inbound messages per connection. Messages over the
// limit are answered with an error and dropped.
func WithMessageRate(perSecond float64, burst int) StreamOption {
	return func(h *StreamHandler) {
		if perSecond > 0 && burst > 0 {
			h.msgRate = rate.Limit(perSecond)
			h.msgBurst = burst
		}
	}
}
