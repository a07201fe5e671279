package jobs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	"github.com/zhouzirui/job-voice/backend/pkg/utils"
)

// Handler 职位目录的HTTP处理器
type Handler struct {
	apps *application.Manager
}

func New(apps *application.Manager) *Handler {
	return &Handler{apps: apps}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/jobs", h.handleList)
	r.Get("/jobs/{jobID}", h.handleGet)
}

// handleList 按发布时间倒序返回职位，language=de 时返回德语字段
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.apps.ListJobs(r.Context())
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	language := r.URL.Query().Get("language")
	out := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Localized(language))
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"jobs":  out,
		"count": len(out),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	j, err := h.apps.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, j.Localized(r.URL.Query().Get("language")))
}
