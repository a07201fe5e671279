package application

import (
	"encoding/json"
	"time"
)

// Live update event types.
const (
	EventFieldUpdate          = "field_update"
	EventApplicationSubmitted = "application_submitted"
)

// Event is published on a session's update channel and relayed verbatim to
// the live browser connection. Field and FieldName carry the same value; the
// browser reads field, older agents read field_name.
type Event struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	Field         string `json:"field,omitempty"`
	FieldName     string `json:"field_name,omitempty"`
	Value         string `json:"value,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// Timestamp formats t the way every persisted and published timestamp is
// written.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func NewFieldUpdate(sessionID, field, value string, at time.Time) Event {
	return Event{
		Type:      EventFieldUpdate,
		SessionID: sessionID,
		Field:     field,
		FieldName: field,
		Value:     value,
		Timestamp: Timestamp(at),
	}
}

func NewApplicationSubmitted(sessionID, applicationID, jobID string, at time.Time) Event {
	return Event{
		Type:          EventApplicationSubmitted,
		SessionID:     sessionID,
		ApplicationID: applicationID,
		JobID:         jobID,
		Timestamp:     Timestamp(at),
	}
}

// MarshalJSON always writes value on a field_update, so clearing a field to ""
// still reaches the browser. Other event types omit it.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire Event
	if e.Type != EventFieldUpdate {
		return json.Marshal(wire(e))
	}
	return json.Marshal(struct {
		wire
		Value string `json:"value"`
	}{wire: wire(e), Value: e.Value})
}

func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
