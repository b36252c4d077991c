// Package api provides the introspection HTTP server of a typedbus process.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goclaw/typedbus/pkg/api/handlers"
	"github.com/goclaw/typedbus/pkg/api/middleware"
	"github.com/goclaw/typedbus/pkg/api/response"
	"github.com/goclaw/typedbus/pkg/logger"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Health handles health and status endpoints.
	Health *handlers.HealthHandler

	// Debug exposes registry and lane snapshots.
	Debug *handlers.DebugHandler

	// Metrics serves the Prometheus exposition, optional.
	Metrics http.Handler

	// MetricsPath is where Metrics is mounted. Defaults to /metrics.
	MetricsPath string

	// Recorder records HTTP metrics, optional.
	Recorder middleware.MetricsRecorder
}

// NewRouter creates a chi router with middleware and routes.
func NewRouter(log logger.Logger, h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Tracing("/health"))
	if h.Recorder != nil {
		r.Use(middleware.Metrics(h.Recorder))
	}
	r.Use(middleware.Recovery(log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
			"route not found", middleware.GetRequestID(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, response.ErrCodeMethodNotAllowed,
			"method not allowed", middleware.GetRequestID(r.Context()))
	})

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registers all introspection routes.
func RegisterRoutes(r chi.Router, h *Handlers) {
	if h.Health != nil {
		r.Get("/health", h.Health.Health)
		r.Get("/status", h.Health.Status)
	}

	if h.Debug != nil {
		r.Route("/debug", func(r chi.Router) {
			r.Get("/bus", h.Debug.Bus)
			r.Get("/bus/{kind}", h.Debug.BusKind)
			r.Get("/lanes", h.Debug.Lanes)
		})
	}

	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, h.Metrics)
	}
}
