package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/config"
	"github.com/zhouzirui/job-voice/backend/internal/model/chat"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("job-voice/ai")

// Turn is everything one completion needs.
type Turn struct {
	SessionID string
	Language  string
	Job       job.Job
	History   []chat.Message
	Message   string
}

// Service runs the interviewer prompt against a chat model.
type Service struct {
	cfg    config.AIConfig
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewService creates the Ark chat model from cfg and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg, logger)
}

// NewServiceWithModel compiles the chain over an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, cfg config.AIConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{cfg: cfg, chain: runnable, logger: logger.Named("ai")}, nil
}

// Reply returns the assistant text for one turn.
func (s *Service) Reply(ctx context.Context, turn Turn) (string, error) {
	ctx, span := tracer.Start(ctx, "Reply")
	defer span.End()
	span.SetAttributes(telemetry.String("session_id", turn.SessionID), telemetry.String("language", turn.Language))

	language := turn.Language
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  BuildSystemPrompt(language, turn.Job),
		"history": s.buildHistoryMessages(turn.History),
		"query":   turn.Message,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	content := strings.TrimSpace(response.Content)
	s.logger.Debug("generated response",
		zap.String("session_id", turn.SessionID),
		zap.String("job_id", turn.Job.ID),
		zap.Int("length", len(content)))
	return content, nil
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	limit := s.cfg.HistoryLimit
	if len(messages) == 0 || limit == 0 {
		return nil
	}

	startIdx := 0
	if limit > 0 && len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
