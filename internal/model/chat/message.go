package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversation turn sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat turn for a session.
type Request struct {
	SessionID string    `json:"session_id"`
	JobID     string    `json:"job_id"`
	Message   string    `json:"message"`
	Language  string    `json:"language,omitempty"`
	History   []Message `json:"conversation_history,omitempty"`

	// JobTitle and Department override the catalog entry in the prompt.
	JobTitle   string `json:"job_title,omitempty"`
	Department string `json:"department,omitempty"`
}

// Response carries the assistant reply and the draft fields it filled.
type Response struct {
	Response     string            `json:"response"`
	FieldUpdates map[string]string `json:"field_updates"`
	Language     string            `json:"language"`
}
