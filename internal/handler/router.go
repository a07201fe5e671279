package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/handler/applications"
	"github.com/zhouzirui/job-voice/backend/internal/handler/chat"
	"github.com/zhouzirui/job-voice/backend/internal/handler/health"
	"github.com/zhouzirui/job-voice/backend/internal/handler/jobs"
	"github.com/zhouzirui/job-voice/backend/internal/handler/live"
	"github.com/zhouzirui/job-voice/backend/internal/handler/sessions"
	"github.com/zhouzirui/job-voice/backend/internal/mcp"
	middlewarePkg "github.com/zhouzirui/job-voice/backend/internal/middleware"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	chatService "github.com/zhouzirui/job-voice/backend/internal/service/chat"
	"github.com/zhouzirui/job-voice/backend/internal/service/updates"
	"github.com/zhouzirui/job-voice/backend/internal/store"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Store        store.Store
	Applications *application.Manager
	Relay        *updates.Relay
	Chat         *chatService.Service
	MCP          *mcp.Server
	CORSOrigins  []string
	Logger       *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(d.CORSOrigins))

	health.New(d.Store).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		jobs.New(d.Applications).RegisterRoutes(api)
		sessions.New(d.Applications).RegisterRoutes(api)
		applications.New(d.Applications).RegisterRoutes(api)
		chat.New(d.Chat).RegisterRoutes(api)
	})

	live.NewWebSocketHandler(d.Applications, d.Relay, logger).RegisterWebSocketRoutes(r)

	if d.MCP != nil {
		d.MCP.RegisterRoutes(r)
	}

	return r
}
