package handlers

import (
	"net/http"

	"github.com/bobmcallan/coinboard/internal/common"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger   *common.Logger
	backend  func() string
	entries  func() int
	sessions func() int
}

// NewHealthHandler creates a new health handler. backend reports the storage
// backend in use, entries the proxy cache size and sessions the number of
// live client sessions. Any of them may be nil.
func NewHealthHandler(logger *common.Logger, backend func() string, entries, sessions func() int) *HealthHandler {
	return &HealthHandler{logger: logger, backend: backend, entries: entries, sessions: sessions}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	body := map[string]interface{}{
		"status": "ok",
	}
	if h.backend != nil {
		body["storage"] = h.backend()
	}
	if h.entries != nil {
		body["cache_entries"] = h.entries()
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions()
	}
	WriteJSON(w, http.StatusOK, body)
}
