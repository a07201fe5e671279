package application

import (
	"strings"
	"time"
)

// Recognized draft fields.
const (
	FieldName              = "name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldYearsExperience   = "years_experience"
	FieldSkills            = "skills"
	FieldCoverLetter       = "cover_letter"
	FieldKeySkills         = "key_skills"
	FieldPersonalStatement = "personal_statement"
)

// UpdatedAtSuffix marks the per-field timestamp written next to each value.
const UpdatedAtSuffix = "_updated_at"

const StatusSubmitted = "submitted"

// RequiredFields gate submission. The slice is never empty.
func RequiredFields() []string {
	return []string{FieldName, FieldEmail, FieldPhone}
}

// OptionalFields are recognized but do not gate submission.
func OptionalFields() []string {
	return []string{FieldYearsExperience, FieldSkills, FieldCoverLetter, FieldKeySkills, FieldPersonalStatement}
}

// IsTimestampKey reports whether a draft hash key is a per-field timestamp.
func IsTimestampKey(key string) bool {
	return strings.HasSuffix(key, UpdatedAtSuffix)
}

// Session is one in-progress conversation.
type Session struct {
	ID            string    `json:"session_id"`
	JobID         string    `json:"job_id"`
	CreatedAt     time.Time `json:"created_at"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Submitted     bool      `json:"submitted"`
	ApplicationID string    `json:"application_id,omitempty"`
}

// CreatedSession is returned by session creation together with the routing
// information a browser needs to hand the session to a voice agent.
type CreatedSession struct {
	SessionID     string `json:"session_id"`
	JobID         string `json:"job_id"`
	MCPServerURL  string `json:"mcp_server_url"`
	MCPSSEURL     string `json:"mcp_sse_url"`
	WebSocketPath string `json:"websocket_path"`
}

// FilledFields splits the present fields into required and optional ones.
type FilledFields struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

// Status is the pull view of a session's draft.
type Status struct {
	SessionID            string            `json:"session_id"`
	JobID                string            `json:"job_id,omitempty"`
	ApplicationData      map[string]string `json:"application_data"`
	UpdatedAt            map[string]string `json:"updated_at,omitempty"`
	Filled               FilledFields      `json:"filled_fields"`
	RequiredFields       []string          `json:"required_fields"`
	MissingRequired      []string          `json:"missing_required"`
	CompletionPercentage float64           `json:"completion_percentage"`
	ReadyToSubmit        bool              `json:"ready_to_submit"`
	Submitted            bool              `json:"submitted"`
	ApplicationID        string            `json:"application_id,omitempty"`
}

// Submitted is the immutable record created once per session.
type Submitted struct {
	ApplicationID string            `json:"application_id"`
	SessionID     string            `json:"session_id"`
	JobID         string            `json:"job_id"`
	SubmittedAt   string            `json:"submitted_at"`
	Status        string            `json:"status"`
	Fields        map[string]string `json:"fields"`
}

// Metadata keys stored alongside the draft fields in a submitted record.
const (
	recordApplicationID = "application_id"
	recordSessionID     = "session_id"
	recordJobID         = "job_id"
	recordSubmittedAt   = "submitted_at"
	recordStatus        = "status"
)

// ToHash flattens the record. Metadata keys win over draft fields that happen
// to share a name.
func (s Submitted) ToHash() map[string]string {
	h := make(map[string]string, len(s.Fields)+5)
	for k, v := range s.Fields {
		h[k] = v
	}
	h[recordApplicationID] = s.ApplicationID
	h[recordSessionID] = s.SessionID
	h[recordJobID] = s.JobID
	h[recordSubmittedAt] = s.SubmittedAt
	h[recordStatus] = s.Status
	return h
}

// SubmittedFromHash reverses ToHash.
func SubmittedFromHash(h map[string]string) Submitted {
	s := Submitted{
		ApplicationID: h[recordApplicationID],
		SessionID:     h[recordSessionID],
		JobID:         h[recordJobID],
		SubmittedAt:   h[recordSubmittedAt],
		Status:        h[recordStatus],
		Fields:        make(map[string]string, len(h)),
	}
	for k, v := range h {
		switch k {
		case recordApplicationID, recordSessionID, recordJobID, recordSubmittedAt, recordStatus:
			continue
		}
		s.Fields[k] = v
	}
	return s
}

// SubmitResult reports a submission outcome. AlreadySubmitted is set when the
// call was an idempotent repeat of an earlier success.
type SubmitResult struct {
	ApplicationID    string `json:"application_id"`
	JobID            string `json:"job_id"`
	SubmittedAt      string `json:"submitted_at,omitempty"`
	AlreadySubmitted bool   `json:"already_submitted"`
}
