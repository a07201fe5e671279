package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/config"
	"github.com/zhouzirui/job-voice/backend/internal/handler"
	"github.com/zhouzirui/job-voice/backend/internal/logging"
	"github.com/zhouzirui/job-voice/backend/internal/mcp"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/notify"
	"github.com/zhouzirui/job-voice/backend/internal/service/ai"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	chatService "github.com/zhouzirui/job-voice/backend/internal/service/chat"
	"github.com/zhouzirui/job-voice/backend/internal/service/updates"
	"github.com/zhouzirui/job-voice/backend/internal/store"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
	"github.com/zhouzirui/job-voice/backend/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	tracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else if tracing.Enabled() {
		logger.Info("tracing enabled",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sample_ratio", cfg.Telemetry.SampleRatio))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		logger.Warn("submission notifier disabled", zap.Error(err))
		notifier = notify.Noop{}
	}
	defer notifier.Close()

	apps := application.NewManager(st, application.Options{
		SessionTTL:          cfg.Application.SessionTTL,
		SubmissionRetention: cfg.Application.SubmissionRetention,
		PublicBaseURL:       cfg.Server.PublicBaseURL,
		MCPBasePath:         cfg.Server.MCPBasePath,
		Notifier:            notifier,
		Logger:              logger,
	})
	if cfg.Application.SeedDemoJobs {
		if err := apps.SeedJobs(ctx, job.Seed(time.Now())); err != nil {
			return err
		}
	}

	// Initialize AI service
	var responder chatService.Responder
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("failed to initialize AI service, /api/chat disabled", zap.Error(err))
		} else {
			responder = aiSvc
			logger.Info("AI service initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Info("chat model not configured, /api/chat disabled")
	}

	relay := updates.NewRelay(st, logger)
	mcpServer := mcp.NewServer(mcp.NewDispatcher(tools.NewVocabulary(apps, logger), logger), cfg.Server.MCPBasePath, logger)

	router := handler.NewRouter(handler.Deps{
		Store:        st,
		Applications: apps,
		Relay:        relay,
		Chat:         chatService.NewService(responder, apps, cfg.AI.DefaultLanguage, logger),
		MCP:          mcpServer,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Streams and websockets are not tracked by Shutdown; end them first.
	srv.RegisterOnShutdown(func() {
		mcpServer.Close()
		n := relay.CloseAll()
		logger.Info("live connections closed", zap.Int("count", n))
	})

	logger.Info("job voice backend listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", st.Backend()),
		zap.String("mcp_base_path", cfg.Server.MCPBasePath))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
