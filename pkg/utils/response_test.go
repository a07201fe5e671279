package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
)

func TestRespondDomainErrorIncludesMissingFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondDomainError(rec, apperr.ValidationFailed([]string{"email", "phone"}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body struct {
		Error         string   `json:"error"`
		ErrorType     string   `json:"error_type"`
		MissingFields []string `json:"missing_fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ErrorType != string(apperr.ErrTypeValidation) {
		t.Fatalf("unexpected error type %q", body.ErrorType)
	}
	if len(body.MissingFields) != 2 || body.MissingFields[0] != "email" {
		t.Fatalf("unexpected missing fields %v", body.MissingFields)
	}
}

func TestRespondDomainErrorFallsBackTo500(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondDomainError(rec, errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestStatusForNotFound(t *testing.T) {
	if got := StatusFor(apperr.ErrTypeNotFound); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
	if got := StatusFor(apperr.ErrTypeUnavailable); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", got)
	}
}

func TestSSEWriterFramesMultilineData(t *testing.T) {
	rec := httptest.NewRecorder()
	sw, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}
	if err := sw.SendRaw("message", "a\nb"); err != nil {
		t.Fatalf("SendRaw: %v", err)
	}
	if err := sw.Comment("ping"); err != nil {
		t.Fatalf("Comment: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	want := "event: message\ndata: a\ndata: b\n\n: ping\n\n"
	if got := rec.Body.String(); !strings.Contains(got, want) {
		t.Fatalf("unexpected stream %q", got)
	}
}
