package api

import (
	"net/http"

	"github.com/okian/vigil/internal/app"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// SessionLookup is implemented by providers that can describe one session.
type SessionLookup interface {
	Session(id string) (*app.Session, bool)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats. With ?session=<id> it returns only that
// session, when the provider supports lookups.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := r.URL.Query().Get("session")
	if id == "" {
		writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
		return
	}

	lookup, ok := h.statsProvider.(SessionLookup)
	if !ok {
		writeError(w, http.StatusNotImplemented, "unsupported", nil)
		return
	}
	sess, ok := lookup.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", app.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}
