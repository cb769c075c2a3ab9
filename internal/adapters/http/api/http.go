// Package api exposes the proctoring engine over HTTP: the browser signal
// websocket, Prometheus metrics on /healthz, and service stats.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/vigil/internal/app"
)

// Sessions is the session registry the stream handler drives.
type Sessions interface {
	OpenSession(ctx context.Context, identity app.Identity, dev app.Devices, opts ...app.SessionOption) (*app.Session, error)
	CloseSession(ctx context.Context, id string) error
}

// Server wires HTTP routes for the proctoring API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	streamHandler *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(sessions Sessions, statsProvider StatsProvider, opts ...StreamOption) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		streamHandler: NewStreamHandler(sessions, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions/ws", MetricsMiddleware(s.streamHandler.HandleStream, "sessions_ws"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
