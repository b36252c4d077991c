package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goclaw/typedbus/pkg/api/middleware"
	"github.com/goclaw/typedbus/pkg/api/response"
	"github.com/goclaw/typedbus/pkg/lane"
)

// DebugHandler exposes registry and lane snapshots.
type DebugHandler struct {
	bus   BusInspector
	lanes LaneInspector
}

// NewDebugHandler creates a debug handler. lanes may be nil.
func NewDebugHandler(bus BusInspector, lanes LaneInspector) *DebugHandler {
	return &DebugHandler{bus: bus, lanes: lanes}
}

// Bus handles GET /debug/bus.
func (h *DebugHandler) Bus(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.bus.Stats())
}

// BusKind handles GET /debug/bus/{kind}.
func (h *DebugHandler) BusKind(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	for _, ks := range h.bus.Stats().Kinds {
		if ks.Kind == kind {
			response.JSON(w, http.StatusOK, ks)
			return
		}
	}
	response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
		"no subscriptions for kind "+kind, middleware.GetRequestID(r.Context()))
}

// Lanes handles GET /debug/lanes.
func (h *DebugHandler) Lanes(w http.ResponseWriter, r *http.Request) {
	stats := []lane.Stats{}
	if h.lanes != nil {
		stats = h.lanes.Stats()
	}
	response.JSON(w, http.StatusOK, stats)
}
