package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/job-voice/backend/internal/store"
	"github.com/zhouzirui/job-voice/backend/pkg/utils"
)

const ServiceName = "job-voice-backend"

type Handler struct {
	store store.Store
}

func New(st store.Store) *Handler {
	return &Handler{store: st}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleHealth)
	r.Get("/health", h.handleHealth)
}

// handleHealth reports degraded when the store does not answer a ping.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"status":  "healthy",
		"service": ServiceName,
		"store":   h.store.Backend(),
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	utils.RespondJSON(w, status, body)
}
