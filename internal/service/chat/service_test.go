package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/model/chat"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	"github.com/zhouzirui/job-voice/backend/internal/service/ai"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	chatService "github.com/zhouzirui/job-voice/backend/internal/service/chat"
	"github.com/zhouzirui/job-voice/backend/internal/store"
)

type fakeResponder struct {
	reply string
	err   error
	turn  ai.Turn
}

func (f *fakeResponder) Reply(_ context.Context, turn ai.Turn) (string, error) {
	f.turn = turn
	return f.reply, f.err
}

func newManager(t *testing.T) *application.Manager {
	t.Helper()
	mgr := application.NewManager(store.NewMemoryStore(), application.Options{})
	if err := mgr.SeedJobs(context.Background(), job.Seed(time.Now())); err != nil {
		t.Fatalf("SeedJobs err: %v", err)
	}
	return mgr
}

func TestTurnAppliesExtractedFields(t *testing.T) {
	mgr := newManager(t)
	responder := &fakeResponder{reply: "Great, thanks!\n\nKey Skills & Experience:\nLed three cross-functional teams.\n\nWhy You're a Good Fit:\nI thrive under ambiguity."}
	svc := chatService.NewService(responder, mgr, "en", nil)
	ctx := context.Background()

	resp, err := svc.Turn(ctx, chat.Request{SessionID: "s1", JobID: "job_001", Message: "I led teams"})
	if err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if resp.FieldUpdates["key_skills"] != "Led three cross-functional teams." {
		t.Fatalf("unexpected key_skills %q", resp.FieldUpdates["key_skills"])
	}
	if resp.FieldUpdates["personal_statement"] != "I thrive under ambiguity." {
		t.Fatalf("unexpected personal_statement %q", resp.FieldUpdates["personal_statement"])
	}
	if responder.turn.Job.ID != "job_001" || responder.turn.Language != "en" {
		t.Fatalf("unexpected turn %+v", responder.turn)
	}

	status, err := mgr.GetStatus(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStatus err: %v", err)
	}
	if status.ApplicationData["key_skills"] != "Led three cross-functional teams." {
		t.Fatalf("draft not updated: %v", status.ApplicationData)
	}
}

func TestTurnWithoutFieldsUpdatesNothing(t *testing.T) {
	mgr := newManager(t)
	svc := chatService.NewService(&fakeResponder{reply: "What drew you to this role?"}, mgr, "en", nil)

	resp, err := svc.Turn(context.Background(), chat.Request{SessionID: "s1", JobID: "job_001", Message: "Hi"})
	if err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if len(resp.FieldUpdates) != 0 {
		t.Fatalf("expected no updates, got %v", resp.FieldUpdates)
	}
}

func TestTurnDisabledWithoutModel(t *testing.T) {
	svc := chatService.NewService(nil, newManager(t), "en", nil)
	if svc.Enabled() {
		t.Fatal("expected disabled service")
	}
	_, err := svc.Turn(context.Background(), chat.Request{SessionID: "s1", Message: "Hi"})
	if !apperr.Is(err, apperr.ErrTypeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestTurnModelFailureIsUnavailable(t *testing.T) {
	svc := chatService.NewService(&fakeResponder{err: errors.New("timeout")}, newManager(t), "en", nil)
	_, err := svc.Turn(context.Background(), chat.Request{SessionID: "s1", JobID: "job_001", Message: "Hi"})
	if !apperr.Is(err, apperr.ErrTypeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestTurnUnknownJobUsesRequestTitle(t *testing.T) {
	responder := &fakeResponder{reply: "Tell me more."}
	svc := chatService.NewService(responder, newManager(t), "en", nil)
	ctx := context.Background()

	if _, err := svc.Turn(ctx, chat.Request{SessionID: "s1", JobID: "job_999", Message: "Hi"}); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := svc.Turn(ctx, chat.Request{SessionID: "s1", JobID: "job_999", JobTitle: "Data Steward", Department: "IT", Message: "Hi"}); err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if responder.turn.Job.Title != "Data Steward" || responder.turn.Job.Department != "IT" {
		t.Fatalf("overrides not applied: %+v", responder.turn.Job)
	}
}
