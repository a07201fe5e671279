// Package notify hands submitted applications to downstream integrations.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/config"
	"github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("job-voice/notify")

// Notifier is told about every successful submission. Delivery is best
// effort; callers log and continue on error.
type Notifier interface {
	ApplicationSubmitted(ctx context.Context, record application.Submitted) error
	Close() error
}

// SubmittedEvent is the message body published downstream.
type SubmittedEvent struct {
	ApplicationID string            `json:"application_id"`
	SessionID     string            `json:"session_id"`
	JobID         string            `json:"job_id"`
	SubmittedAt   string            `json:"submitted_at"`
	Fields        map[string]string `json:"fields"`
}

func newSubmittedEvent(record application.Submitted) SubmittedEvent {
	fields := make(map[string]string, len(record.Fields))
	for k, v := range record.Fields {
		if application.IsTimestampKey(k) {
			continue
		}
		fields[k] = v
	}
	return SubmittedEvent{
		ApplicationID: record.ApplicationID,
		SessionID:     record.SessionID,
		JobID:         record.JobID,
		SubmittedAt:   record.SubmittedAt,
		Fields:        fields,
	}
}

// New returns a NATS notifier when configured, otherwise a no-op.
func New(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}
	return NewNATS(cfg, logger)
}

type natsNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATS(cfg config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("job-voice-backend"),
		nats.Timeout(cfg.ConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, apperr.Unavailable("connecting to NATS", err)
	}

	return &natsNotifier{
		conn:    conn,
		subject: cfg.Subject,
		logger:  logger.Named("notify"),
	}, nil
}

func (n *natsNotifier) ApplicationSubmitted(ctx context.Context, record application.Submitted) error {
	_, span := tracer.Start(ctx, "ApplicationSubmitted")
	defer span.End()

	data, err := json.Marshal(newSubmittedEvent(record))
	if err != nil {
		span.RecordError(err)
		return apperr.Internal("marshaling submission event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", n.subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := n.conn.Publish(n.subject, data); err != nil {
		span.RecordError(err)
		n.logger.Error("failed to publish submission",
			zap.String("application_id", record.ApplicationID),
			zap.Error(err))
		return apperr.Unavailable("publishing to NATS", err)
	}

	n.logger.Debug("published submission",
		zap.String("application_id", record.ApplicationID),
		zap.String("subject", n.subject))
	return nil
}

func (n *natsNotifier) Close() error {
	if n.conn != nil {
		// Drain flushes pending publishes before closing.
		if err := n.conn.Drain(); err != nil {
			n.conn.Close()
		}
	}
	return nil
}

// Noop discards notifications.
type Noop struct{}

func (Noop) ApplicationSubmitted(context.Context, application.Submitted) error { return nil }
func (Noop) Close() error                                                      { return nil }
