package sessions

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	"github.com/zhouzirui/job-voice/backend/pkg/utils"
)

// Handler 会话与草稿的HTTP处理器
type Handler struct {
	apps *application.Manager
}

func New(apps *application.Manager) *Handler {
	return &Handler{apps: apps}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/create", h.handleCreate)
	r.Get("/sessions/{sessionID}/status", h.handleStatus)
	r.Patch("/sessions/{sessionID}/fields", h.handleUpdateField)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobID     string `json:"job_id"`
		UserAgent string `json:"user_agent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.JobID) == "" {
		utils.RespondError(w, http.StatusBadRequest, "job_id is required")
		return
	}
	if payload.UserAgent == "" {
		payload.UserAgent = r.UserAgent()
	}

	created, err := h.apps.CreateSession(r.Context(), payload.JobID, payload.UserAgent)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, created)
}

// handleStatus 读取存储中的最新草稿，是实时通道丢消息时的补偿路径
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.apps.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	status, err := h.apps.GetStatus(r.Context(), sessionID)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

// handleUpdateField 表单直接编辑，与语音工具同样按字段后写覆盖
func (h *Handler) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var payload struct {
		FieldName string  `json:"field_name"`
		Value     *string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.FieldName == "" || payload.Value == nil {
		utils.RespondError(w, http.StatusBadRequest, "field_name and value are required")
		return
	}

	if _, err := h.apps.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	event, err := h.apps.UpdateField(r.Context(), sessionID, payload.FieldName, *payload.Value)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"field_name": event.Field,
		"value":      event.Value,
		"timestamp":  event.Timestamp,
	})
}
