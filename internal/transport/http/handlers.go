// Package httptransport is the thin HTTP layer of the demo service. It
// delegates to the gating integration and the in-memory telemetry client
// without embedding gating logic itself.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"consentgate"
	"consentgate/internal/audit"
	"consentgate/telemetry"
)

// ConsentAdmin is the write side of a consent source, used by the demo to
// simulate the external consent-management UI.
type ConsentAdmin interface {
	SetReady(ctx context.Context) error
	SetGrant(ctx context.Context, identifier string, granted bool) error
}

type Handler struct {
	client     *telemetry.MemoryClient
	admin      ConsentAdmin
	gate       *consentgate.Integration
	auditStore audit.Store
	logger     *slog.Logger
}

func NewHandler(
	client *telemetry.MemoryClient,
	admin ConsentAdmin,
	gate *consentgate.Integration,
	auditStore audit.Store,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		client:     client,
		admin:      admin,
		gate:       gate,
		auditStore: auditStore,
		logger:     logger,
	}
}

type grantRequest struct {
	Granted bool `json:"granted"`
}

// handleConsentReady marks the consent source ready, demonstrating deferred
// startup of the external signal provider.
func (h *Handler) handleConsentReady(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.SetReady(r.Context()); err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleConsentGrant(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if identifier == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("identifier is required"))
		return
	}
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.SetGrant(r.Context(), identifier, req.Granted); err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"identifier": identifier,
		"granted":    req.Granted,
	})
}

type captureRequest struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// handleCapture pushes an event through the telemetry client so the
// integration's processing hook runs exactly as it would in a host app.
func (h *Handler) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	var id telemetry.EventID
	switch telemetry.Kind(req.Kind) {
	case telemetry.KindError:
		id = h.client.CaptureException(errors.New(req.Message), nil)
	case telemetry.KindMessage, "":
		id = h.client.CaptureMessage(req.Message, nil)
	default:
		id = h.client.CaptureEvent(&telemetry.Event{
			Kind:    telemetry.KindGeneric,
			Message: req.Message,
			Level:   req.Level,
		}, nil)
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"event_id": string(id),
		"sent":     id != "",
	})
}

// handleSentEvents lists what the client actually sent, post-gating.
func (h *Handler) handleSentEvents(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.client.SentEvents())
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	opts := h.client.Options()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"gating_state": h.gate.State().String(),
		"snapshot":     h.gate.Snapshot(),
		"queue_depth":  h.gate.QueueDepth(),
		"client": map[string]any{
			"enabled":                     opts.Enabled,
			"sample_rate":                 opts.SampleRate,
			"max_breadcrumbs":             opts.MaxBreadcrumbs,
			"attach_stacktrace":           opts.AttachStacktrace,
			"traces_sample_rate":          opts.TracesSampleRate,
			"profiles_sample_rate":        opts.ProfilesSampleRate,
			"replays_session_sample_rate": opts.ReplaysSessionSampleRate,
			"replays_error_sample_rate":   opts.ReplaysOnErrorSampleRate,
			"send_default_pii":            opts.SendDefaultPII,
		},
	})
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.auditStore.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
