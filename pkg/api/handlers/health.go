// Package handlers provides the introspection HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/goclaw/typedbus/pkg/api/response"
	"github.com/goclaw/typedbus/pkg/eventbus"
	"github.com/goclaw/typedbus/pkg/lane"
	"github.com/goclaw/typedbus/pkg/version"
)

// BusInspector is the read-only view of a bus the handlers need.
type BusInspector interface {
	Healthy() bool
	Stats() eventbus.Stats
}

// LaneInspector is the read-only view of the lane manager.
type LaneInspector interface {
	Stats() []lane.Stats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	bus   BusInspector
	lanes LaneInspector
}

// NewHealthHandler creates a new health handler. lanes may be nil.
func NewHealthHandler(bus BusInspector, lanes LaneInspector) *HealthHandler {
	return &HealthHandler{bus: bus, lanes: lanes}
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.bus.Healthy() {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Healthy       bool   `json:"healthy"`
	Version       string `json:"version"`
	Subscriptions int    `json:"subscriptions"`
	Kinds         int    `json:"kinds"`
	OwnerBags     int    `json:"owner_bags"`
	Lanes         int    `json:"lanes"`
	DroppedTasks  int64  `json:"dropped_tasks"`
}

// Status handles the /status endpoint.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.bus.Stats()
	resp := StatusResponse{
		Healthy:       h.bus.Healthy(),
		Version:       version.Get().Version,
		Subscriptions: st.Subscriptions,
		Kinds:         len(st.Kinds),
		OwnerBags:     st.OwnerBags,
	}
	if h.lanes != nil {
		for _, ls := range h.lanes.Stats() {
			resp.Lanes++
			resp.DroppedTasks += ls.Dropped
		}
	}
	response.JSON(w, http.StatusOK, resp)
}
