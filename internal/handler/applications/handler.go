package applications

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	"github.com/zhouzirui/job-voice/backend/pkg/utils"
)

// Handler 申请提交与管理查询的HTTP处理器
type Handler struct {
	apps *application.Manager
}

func New(apps *application.Manager) *Handler {
	return &Handler{apps: apps}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/applications/submit", h.handleSubmit)
	r.Get("/applications", h.handleList)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
		JobID     string `json:"job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.apps.Submit(r.Context(), payload.SessionID, payload.JobID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	message := "Application submitted successfully"
	if res.AlreadySubmitted {
		message = "Application already submitted"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"application_id":    res.ApplicationID,
		"job_id":            res.JobID,
		"submitted_at":      res.SubmittedAt,
		"already_submitted": res.AlreadySubmitted,
		"message":           message,
	})
}

// handleList 管理端列表，可按 job_id 过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.apps.ListSubmitted(r.Context(), r.URL.Query().Get("job_id"))
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"applications": records,
		"count":        len(records),
	})
}
