// Package application owns sessions, drafts and submitted applications. It
// is the only writer of persisted application data and publishes every
// mutation on the session's update channel.
package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/notify"
	"github.com/zhouzirui/job-voice/backend/internal/store"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("job-voice/application")

var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Options configures a Manager. Zero durations fall back to the defaults.
type Options struct {
	SessionTTL          time.Duration
	SubmissionRetention time.Duration

	// PublicBaseURL and MCPBasePath build the routing info returned from
	// CreateSession.
	PublicBaseURL string
	MCPBasePath   string

	Notifier notify.Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

const (
	DefaultSessionTTL          = time.Hour
	DefaultSubmissionRetention = 7 * 24 * time.Hour
)

// Manager implements the application state operations over a store.Store.
type Manager struct {
	store    store.Store
	opts     Options
	notifier notify.Notifier
	logger   *zap.Logger

	jobsMu sync.RWMutex
	jobs   map[string]job.Job
}

func NewManager(st store.Store, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.SubmissionRetention <= 0 {
		opts.SubmissionRetention = DefaultSubmissionRetention
	}
	if opts.MCPBasePath == "" {
		opts.MCPBasePath = "/mcp"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Manager{
		store:    st,
		opts:     opts,
		notifier: notifier,
		logger:   logger.Named("manager"),
		jobs:     make(map[string]job.Job),
	}
}

// SessionTTL reports the configured draft and session expiry.
func (m *Manager) SessionTTL() time.Duration { return m.opts.SessionTTL }

func unavailable(err error) error {
	return apperr.Unavailable("state store", err)
}

// CreateSession starts a conversation for an existing job.
func (m *Manager) CreateSession(ctx context.Context, jobID, userAgent string) (model.CreatedSession, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return model.CreatedSession{}, apperr.InvalidInput("job_id is required", nil)
	}
	if _, err := m.GetJob(ctx, jobID); err != nil {
		return model.CreatedSession{}, err
	}

	sessionID := uuid.NewString()
	key := store.SessionKey(sessionID)
	row := map[string]string{
		"job_id":     jobID,
		"created_at": model.Timestamp(m.opts.Now()),
		"user_agent": userAgent,
		"submitted":  "false",
	}
	if err := m.store.HSet(ctx, key, row); err != nil {
		return model.CreatedSession{}, unavailable(err)
	}
	if err := m.store.Expire(ctx, key, m.opts.SessionTTL); err != nil {
		return model.CreatedSession{}, unavailable(err)
	}

	m.logger.Info("session created", zap.String("session_id", sessionID), zap.String("job_id", jobID))

	mcpURL := strings.TrimRight(m.opts.PublicBaseURL, "/") + m.opts.MCPBasePath
	return model.CreatedSession{
		SessionID:     sessionID,
		JobID:         jobID,
		MCPServerURL:  mcpURL,
		MCPSSEURL:     mcpURL + "/sse",
		WebSocketPath: "/ws/" + sessionID,
	}, nil
}

// GetSession returns the session row or NOT_FOUND once it has expired.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	row, err := m.store.HGetAll(ctx, store.SessionKey(sessionID))
	if err != nil {
		return model.Session{}, unavailable(err)
	}
	if len(row) == 0 {
		return model.Session{}, apperr.NotFound("session not found", store.ErrNotFound)
	}
	created, _ := time.Parse(time.RFC3339Nano, row["created_at"])
	return model.Session{
		ID:            sessionID,
		JobID:         row["job_id"],
		CreatedAt:     created,
		UserAgent:     row["user_agent"],
		Submitted:     row["submitted"] == "true",
		ApplicationID: row["application_id"],
	}, nil
}

// ValidateFieldName rejects names that could collide with timestamp keys or
// are not plain identifiers.
func ValidateFieldName(field string) error {
	if !fieldNamePattern.MatchString(field) || model.IsTimestampKey(field) {
		return apperr.InvalidInput(fmt.Sprintf("invalid field name %q", field), nil)
	}
	return nil
}

// UpdateField upserts one draft field and its timestamp, refreshes the draft
// expiry and publishes a field_update event. It does not require the session
// row to exist. A failed publish is logged, not returned.
func (m *Manager) UpdateField(ctx context.Context, sessionID, field, value string) (model.Event, error) {
	ctx, span := tracer.Start(ctx, "UpdateField")
	defer span.End()
	span.SetAttributes(telemetry.String("session_id", sessionID), telemetry.String("field", field))

	if strings.TrimSpace(sessionID) == "" {
		return model.Event{}, apperr.InvalidInput("session_id is required", nil)
	}
	if err := ValidateFieldName(field); err != nil {
		return model.Event{}, err
	}

	now := m.opts.Now()
	ts := model.Timestamp(now)
	key := store.DraftKey(sessionID)
	values := map[string]string{field: value}
	values[field+model.UpdatedAtSuffix] = ts
	if err := m.store.HSet(ctx, key, values); err != nil {
		span.RecordError(err)
		return model.Event{}, unavailable(err)
	}
	if err := m.store.Expire(ctx, key, m.opts.SessionTTL); err != nil {
		span.RecordError(err)
		return model.Event{}, unavailable(err)
	}

	event := model.NewFieldUpdate(sessionID, field, value, now)
	m.publish(ctx, sessionID, event)

	m.logger.Debug("field updated", zap.String("session_id", sessionID), zap.String("field", field))
	return event, nil
}

func (m *Manager) publish(ctx context.Context, sessionID string, event model.Event) {
	payload, err := event.Encode()
	if err == nil {
		err = m.store.Publish(ctx, store.UpdatesChannel(sessionID), payload)
	}
	if err != nil {
		m.logger.Warn("live update publish failed",
			zap.String("session_id", sessionID),
			zap.String("type", event.Type),
			zap.Error(err))
	}
}

// GetStatus reads the draft directly from the store. A missing session row is
// not an error here; see GetSession.
func (m *Manager) GetStatus(ctx context.Context, sessionID string) (model.Status, error) {
	draft, err := m.store.HGetAll(ctx, store.DraftKey(sessionID))
	if err != nil {
		return model.Status{}, unavailable(err)
	}
	session, err := m.store.HGetAll(ctx, store.SessionKey(sessionID))
	if err != nil {
		return model.Status{}, unavailable(err)
	}
	return buildStatus(sessionID, session, draft), nil
}

func buildStatus(sessionID string, session, draft map[string]string) model.Status {
	data := make(map[string]string, len(draft))
	updated := make(map[string]string)
	for k, v := range draft {
		if model.IsTimestampKey(k) {
			updated[strings.TrimSuffix(k, model.UpdatedAtSuffix)] = v
			continue
		}
		data[k] = v
	}

	required := model.RequiredFields()
	st := model.Status{
		SessionID:       sessionID,
		JobID:           session["job_id"],
		ApplicationData: data,
		UpdatedAt:       updated,
		Filled:          model.FilledFields{Required: []string{}, Optional: []string{}},
		RequiredFields:  required,
		MissingRequired: []string{},
		Submitted:       session["submitted"] == "true",
		ApplicationID:   session["application_id"],
	}
	for _, f := range required {
		if present(data, f) {
			st.Filled.Required = append(st.Filled.Required, f)
		} else {
			st.MissingRequired = append(st.MissingRequired, f)
		}
	}
	for _, f := range model.OptionalFields() {
		if present(data, f) {
			st.Filled.Optional = append(st.Filled.Optional, f)
		}
	}
	st.CompletionPercentage = float64(len(st.Filled.Required)) / float64(len(required)) * 100
	st.ReadyToSubmit = len(st.MissingRequired) == 0
	return st
}

// present treats a blank value as absent so a cleared field cannot satisfy the
// submission gate.
func present(data map[string]string, field string) bool {
	return strings.TrimSpace(data[field]) != ""
}

// Submit promotes the draft to a submitted application exactly once per
// session. Repeat calls after a success report that success again.
func (m *Manager) Submit(ctx context.Context, sessionID, jobID string) (model.SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(telemetry.String("session_id", sessionID))

	if strings.TrimSpace(sessionID) == "" {
		return model.SubmitResult{}, apperr.InvalidInput("session_id is required", nil)
	}

	if prior, ok, err := m.priorSubmission(ctx, sessionID); err != nil {
		return model.SubmitResult{}, err
	} else if ok {
		return prior, nil
	}

	session, err := m.store.HGetAll(ctx, store.SessionKey(sessionID))
	if err != nil {
		return model.SubmitResult{}, unavailable(err)
	}
	if sessionJob := session["job_id"]; sessionJob != "" {
		if jobID != "" && jobID != sessionJob {
			m.logger.Warn("submit job_id differs from session, using session value",
				zap.String("session_id", sessionID),
				zap.String("requested_job_id", jobID),
				zap.String("job_id", sessionJob))
		}
		jobID = sessionJob
	}
	if strings.TrimSpace(jobID) == "" {
		return model.SubmitResult{}, apperr.InvalidInput("job_id is required", nil)
	}

	draft, err := m.store.HGetAll(ctx, store.DraftKey(sessionID))
	if err != nil {
		return model.SubmitResult{}, unavailable(err)
	}
	var missing []string
	for _, f := range model.RequiredFields() {
		if !present(draft, f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		// The draft may have just been promoted by a concurrent submit.
		if prior, ok, err := m.priorSubmission(ctx, sessionID); err != nil || ok {
			return prior, err
		}
		return model.SubmitResult{}, apperr.ValidationFailed(missing)
	}

	now := m.opts.Now()
	applicationID := fmt.Sprintf("app_%s_%s", sessionID, now.UTC().Format("20060102150405"))
	markerKey := store.SubmissionMarkerKey(sessionID)

	won, err := m.store.SetNX(ctx, markerKey, applicationID, m.opts.SubmissionRetention)
	if err != nil {
		return model.SubmitResult{}, unavailable(err)
	}
	if !won {
		// A concurrent submit got there first.
		if prior, ok, err := m.priorSubmission(ctx, sessionID); err != nil || ok {
			return prior, err
		}
		return model.SubmitResult{}, apperr.Internal("submission marker vanished", nil)
	}

	record := model.Submitted{
		ApplicationID: applicationID,
		SessionID:     sessionID,
		JobID:         jobID,
		SubmittedAt:   model.Timestamp(now),
		Status:        model.StatusSubmitted,
		Fields:        draft,
	}
	if err := m.persistRecord(ctx, record); err != nil {
		span.RecordError(err)
		if delErr := m.store.Del(ctx, markerKey, store.SubmittedKey(applicationID)); delErr != nil {
			m.logger.Error("rollback of failed submission incomplete",
				zap.String("session_id", sessionID), zap.Error(delErr))
		}
		return model.SubmitResult{}, unavailable(err)
	}

	if len(session) > 0 {
		if err := m.store.HSet(ctx, store.SessionKey(sessionID), map[string]string{
			"submitted":      "true",
			"application_id": applicationID,
		}); err != nil {
			m.logger.Warn("failed to mark session submitted", zap.String("session_id", sessionID), zap.Error(err))
		} else if err := m.store.Expire(ctx, store.SessionKey(sessionID), m.opts.SessionTTL); err != nil {
			m.logger.Warn("failed to refresh session expiry", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	m.publish(ctx, sessionID, model.NewApplicationSubmitted(sessionID, applicationID, jobID, now))

	if err := m.store.Del(ctx, store.DraftKey(sessionID)); err != nil {
		m.logger.Warn("failed to delete promoted draft", zap.String("session_id", sessionID), zap.Error(err))
	}

	if err := m.notifier.ApplicationSubmitted(ctx, record); err != nil {
		m.logger.Warn("downstream notification failed",
			zap.String("application_id", applicationID), zap.Error(err))
	}

	m.logger.Info("application submitted",
		zap.String("session_id", sessionID),
		zap.String("application_id", applicationID),
		zap.String("job_id", jobID))

	return model.SubmitResult{
		ApplicationID: applicationID,
		JobID:         jobID,
		SubmittedAt:   record.SubmittedAt,
	}, nil
}

func (m *Manager) persistRecord(ctx context.Context, record model.Submitted) error {
	key := store.SubmittedKey(record.ApplicationID)
	if err := m.store.HSet(ctx, key, record.ToHash()); err != nil {
		return err
	}
	if err := m.store.Expire(ctx, key, m.opts.SubmissionRetention); err != nil {
		return err
	}
	return m.store.LPush(ctx, store.JobApplicationsKey(record.JobID), record.ApplicationID)
}

// priorSubmission reports an earlier successful submit via its marker.
func (m *Manager) priorSubmission(ctx context.Context, sessionID string) (model.SubmitResult, bool, error) {
	applicationID, err := m.store.Get(ctx, store.SubmissionMarkerKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return model.SubmitResult{}, false, nil
	}
	if err != nil {
		return model.SubmitResult{}, false, unavailable(err)
	}

	res := model.SubmitResult{ApplicationID: applicationID, AlreadySubmitted: true}
	record, err := m.store.HGetAll(ctx, store.SubmittedKey(applicationID))
	if err != nil {
		return model.SubmitResult{}, false, unavailable(err)
	}
	res.JobID = record["job_id"]
	res.SubmittedAt = record["submitted_at"]
	return res, true, nil
}

// ListSubmitted returns submitted applications newest first, either for one
// job or across all jobs.
func (m *Manager) ListSubmitted(ctx context.Context, jobID string) ([]model.Submitted, error) {
	var keys []string
	if jobID != "" {
		ids, err := m.store.LRange(ctx, store.JobApplicationsKey(jobID), 0, -1)
		if err != nil {
			return nil, unavailable(err)
		}
		for _, id := range ids {
			keys = append(keys, store.SubmittedKey(id))
		}
	} else {
		scanned, err := m.store.ScanPrefix(ctx, store.SubmittedPrefix)
		if err != nil {
			return nil, unavailable(err)
		}
		keys = scanned
	}

	out := make([]model.Submitted, 0, len(keys))
	for _, key := range keys {
		row, err := m.store.HGetAll(ctx, key)
		if err != nil {
			return nil, unavailable(err)
		}
		if len(row) == 0 {
			// Expired records stay referenced by the job list.
			continue
		}
		out = append(out, model.SubmittedFromHash(row))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt > out[j].SubmittedAt })
	return out, nil
}
