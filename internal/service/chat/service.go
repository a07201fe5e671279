// Package chat runs a typed conversation turn: the assistant reply is scanned
// for application fields, which are written to the session draft.
package chat

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/analysis/fields"
	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/model/chat"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/service/ai"
)

// Responder produces the assistant reply for a turn.
type Responder interface {
	Reply(ctx context.Context, turn ai.Turn) (string, error)
}

// Applications is the slice of the state manager a turn needs.
type Applications interface {
	GetJob(ctx context.Context, jobID string) (job.Job, error)
	UpdateField(ctx context.Context, sessionID, field, value string) (model.Event, error)
}

// Service encapsulates chat turn orchestration.
type Service struct {
	responder       Responder
	apps            Applications
	extractor       *fields.Extractor
	defaultLanguage string
	logger          *zap.Logger
}

// NewService wires a responder to the state manager. A nil responder leaves
// the service disabled.
func NewService(responder Responder, apps Applications, defaultLanguage string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &Service{
		responder:       responder,
		apps:            apps,
		extractor:       fields.New(),
		defaultLanguage: defaultLanguage,
		logger:          logger.Named("chat"),
	}
}

// Enabled reports whether a chat model is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.responder != nil
}

// Turn asks the model for a reply and applies any extracted fields.
func (s *Service) Turn(ctx context.Context, req chat.Request) (chat.Response, error) {
	if !s.Enabled() {
		return chat.Response{}, apperr.Unavailable("chat model not configured", nil)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return chat.Response{}, apperr.InvalidInput("session_id is required", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return chat.Response{}, apperr.InvalidInput("message is required", nil)
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.defaultLanguage
	}

	j, err := s.resolveJob(ctx, req)
	if err != nil {
		return chat.Response{}, err
	}

	reply, err := s.responder.Reply(ctx, ai.Turn{
		SessionID: req.SessionID,
		Language:  language,
		Job:       j,
		History:   req.History,
		Message:   req.Message,
	})
	if err != nil {
		return chat.Response{}, apperr.Unavailable("chat model", err)
	}

	log := s.logger.With(zap.String("session_id", req.SessionID))
	extracted := s.extractor.Extract(reply, language)
	updates := make(map[string]string, len(extracted.Fields))

	names := make([]string, 0, len(extracted.Fields))
	for name := range extracted.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := extracted.Fields[name]
		if _, err := s.apps.UpdateField(ctx, req.SessionID, name, value); err != nil {
			log.Warn("apply extracted field failed", zap.String("field", name), zap.Error(err))
			continue
		}
		updates[name] = value
	}
	if extracted.Outcome == fields.NoConfidentMatch {
		log.Debug("no fields extracted from reply")
	}

	return chat.Response{Response: reply, FieldUpdates: updates, Language: extracted.Language}, nil
}

// resolveJob loads the catalog entry. The request's job_title and department
// override it, and stand in for it when the job is unknown.
func (s *Service) resolveJob(ctx context.Context, req chat.Request) (job.Job, error) {
	var j job.Job
	if req.JobID != "" {
		found, err := s.apps.GetJob(ctx, req.JobID)
		switch {
		case err == nil:
			j = found
		case apperr.Is(err, apperr.ErrTypeNotFound) && req.JobTitle != "":
			j.ID = req.JobID
		default:
			return job.Job{}, err
		}
	}
	if req.JobTitle != "" {
		j.Title = req.JobTitle
		j.TitleDE = ""
	}
	if req.Department != "" {
		j.Department = req.Department
		j.DepartmentDE = ""
	}
	return j, nil
}
