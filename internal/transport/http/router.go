package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the demo endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/consent/ready", h.handleConsentReady)
	r.Post("/consent/{identifier}", h.handleConsentGrant)

	r.Post("/events", h.handleCapture)
	r.Get("/events", h.handleSentEvents)

	r.Get("/status", h.handleStatus)
	r.Get("/audit", h.handleAudit)

	return r
}
