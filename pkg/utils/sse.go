package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SSEWriter serializes event frames onto one response. It is safe for
// concurrent use.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSEWriter sets the stream headers and returns a writer, or an error when
// the response cannot be flushed incrementally.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &SSEWriter{w: w, flusher: f}, nil
}

// Send 发送带事件类型的JSON消息
func (sw *SSEWriter) Send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return sw.SendRaw(event, string(b))
}

// SendRaw writes data verbatim. Multi-line data is split into several data
// fields.
func (sw *SSEWriter) SendRaw(event, data string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if event != "" {
		if _, err := fmt.Fprintf(sw.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(sw.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(sw.w, "\n"); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Comment writes a keep-alive comment line.
func (sw *SSEWriter) Comment(text string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
