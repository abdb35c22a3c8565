package delivery

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// webhookPayload is the callback shape shared by the SMS and chat gateways.
type webhookPayload struct {
	MessageID string         `json:"message_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Handler exposes the provider webhook ingress over HTTP.
type Handler struct {
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(reconciler *Reconciler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reconciler: reconciler, logger: logger}
}

// Routes mounts the webhook endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sms", h.handleCallback)
	r.Post("/chat", h.handleCallback)
	return r
}

// handleCallback ingests one provider callback. It answers 200 for
// everything except unreadable payloads: providers retry non-2xx responses
// aggressively, and a callback we chose to discard must not be redelivered
// forever.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(r.Context(), "unreadable delivery callback",
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cb := Callback{
		ProviderMessageID: payload.MessageID,
		Status:            normalizeStatus(payload.Status),
		Timestamp:         payload.Timestamp,
		Raw:               payload.Details,
	}

	if err := h.reconciler.Apply(r.Context(), cb); err != nil {
		// Internal failure: let the provider retry later.
		h.logger.ErrorContext(r.Context(), "failed to reconcile delivery callback",
			slog.String("provider_message_id", payload.MessageID),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// normalizeStatus maps provider status vocabulary onto ours. Unknown values
// come through verbatim and are dropped by Record.Advance.
func normalizeStatus(s string) Status {
	switch s {
	case "sent", "accepted":
		return StatusSent
	case "delivered":
		return StatusDelivered
	case "read", "seen":
		return StatusRead
	case "failed", "undelivered", "rejected":
		return StatusFailed
	case "expired":
		return StatusExpired
	default:
		return Status(s)
	}
}
