package application_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	"github.com/zhouzirui/job-voice/backend/internal/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	records []model.Submitted
}

func (r *recordingNotifier) ApplicationSubmitted(_ context.Context, rec model.Submitted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func newTestManager(t *testing.T) (*application.Manager, *store.MemoryStore, *recordingNotifier) {
	t.Helper()
	st := store.NewMemoryStore()
	notifier := &recordingNotifier{}
	mgr := application.NewManager(st, application.Options{
		PublicBaseURL: "http://localhost:8000",
		Notifier:      notifier,
	})
	if err := mgr.SeedJobs(context.Background(), job.Seed(time.Now())); err != nil {
		t.Fatalf("SeedJobs err: %v", err)
	}
	return mgr, st, notifier
}

func fillRequired(t *testing.T, mgr *application.Manager, sessionID string) {
	t.Helper()
	ctx := context.Background()
	for field, value := range map[string]string{"name": "Ada Lovelace", "email": "ada@example.com", "phone": "+44 20 7946 0000"} {
		if _, err := mgr.UpdateField(ctx, sessionID, field, value); err != nil {
			t.Fatalf("UpdateField(%s) err: %v", field, err)
		}
	}
}

func TestCreateSessionReturnsRouting(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	created, err := mgr.CreateSession(ctx, "job_001", "test-agent")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if created.SessionID == "" || created.JobID != "job_001" {
		t.Fatalf("unexpected session %+v", created)
	}
	if created.MCPServerURL != "http://localhost:8000/mcp" || created.MCPSSEURL != "http://localhost:8000/mcp/sse" {
		t.Fatalf("unexpected routing %+v", created)
	}
	if created.WebSocketPath != "/ws/"+created.SessionID {
		t.Fatalf("unexpected websocket path %q", created.WebSocketPath)
	}

	sess, err := mgr.GetSession(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if sess.JobID != "job_001" || sess.UserAgent != "test-agent" || sess.Submitted {
		t.Fatalf("unexpected session row %+v", sess)
	}
}

func TestCreateSessionUnknownJob(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	_, err := mgr.CreateSession(context.Background(), "job_999", "")
	if !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdateFieldLastWriteWins(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	sid := "session-lww"

	writes := []struct{ field, value string }{
		{"name", "Ada"},
		{"email", "first@example.com"},
		{"name", "Ada Lovelace"},
		{"skills", "math"},
		{"email", "ada@example.com"},
	}
	for _, w := range writes {
		if _, err := mgr.UpdateField(ctx, sid, w.field, w.value); err != nil {
			t.Fatalf("UpdateField err: %v", err)
		}
	}

	st, err := mgr.GetStatus(ctx, sid)
	if err != nil {
		t.Fatalf("GetStatus err: %v", err)
	}
	want := map[string]string{"name": "Ada Lovelace", "email": "ada@example.com", "skills": "math"}
	if len(st.ApplicationData) != len(want) {
		t.Fatalf("unexpected data %v", st.ApplicationData)
	}
	for k, v := range want {
		if st.ApplicationData[k] != v {
			t.Fatalf("field %s = %q, want %q", k, st.ApplicationData[k], v)
		}
	}
	if _, ok := st.UpdatedAt["name"]; !ok {
		t.Fatalf("expected timestamp for name, got %v", st.UpdatedAt)
	}
	if st.ReadyToSubmit || len(st.MissingRequired) != 1 || st.MissingRequired[0] != "phone" {
		t.Fatalf("unexpected readiness %+v", st)
	}
	if fmt.Sprintf("%.4f", st.CompletionPercentage) != "66.6667" {
		t.Fatalf("unexpected completion %f", st.CompletionPercentage)
	}
}

func TestUpdateFieldRoundTripIsByteIdentical(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	value := "  Zoë \"the\" <b>lead</b>\n\t— 10 yrs & counting 🚀 \\n " + string(make([]byte, 300))
	if _, err := mgr.UpdateField(ctx, "s-bytes", "cover_letter", value); err != nil {
		t.Fatalf("UpdateField err: %v", err)
	}
	st, err := mgr.GetStatus(ctx, "s-bytes")
	if err != nil {
		t.Fatalf("GetStatus err: %v", err)
	}
	if st.ApplicationData["cover_letter"] != value {
		t.Fatalf("value changed on round trip")
	}
}

func TestUpdateFieldWithoutSessionRowStillWrites(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.UpdateField(ctx, "expired-session", "name", "Grace"); err != nil {
		t.Fatalf("UpdateField err: %v", err)
	}
	if _, err := mgr.GetSession(ctx, "expired-session"); !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Fatalf("expected missing session row, got %v", err)
	}
	st, _ := mgr.GetStatus(ctx, "expired-session")
	if st.ApplicationData["name"] != "Grace" {
		t.Fatalf("expected draft to be written, got %v", st.ApplicationData)
	}
}

func TestUpdateFieldRejectsBadNames(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	for _, name := range []string{"", "Name", "name_updated_at", "1abc", "has space", "a-b"} {
		if _, err := mgr.UpdateField(context.Background(), "s", name, "v"); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
			t.Fatalf("expected INVALID_INPUT for %q, got %v", name, err)
		}
	}
}

func TestUpdateFieldPublishesEvent(t *testing.T) {
	mgr, st, _ := newTestManager(t)
	ctx := context.Background()

	sub, err := st.Subscribe(ctx, store.UpdatesChannel("s-pub"))
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer sub.Close()

	if _, err := mgr.UpdateField(ctx, "s-pub", "email", "ada@example.com"); err != nil {
		t.Fatalf("UpdateField err: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		var ev model.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != model.EventFieldUpdate || ev.Field != "email" || ev.FieldName != "email" || ev.Value != "ada@example.com" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if _, err := time.Parse(time.RFC3339Nano, ev.Timestamp); err != nil {
			t.Fatalf("bad timestamp %q", ev.Timestamp)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestUpdateFieldClearedValueIsPublished(t *testing.T) {
	mgr, st, _ := newTestManager(t)
	ctx := context.Background()

	sub, err := st.Subscribe(ctx, store.UpdatesChannel("s-clear"))
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer sub.Close()

	if _, err := mgr.UpdateField(ctx, "s-clear", "skills", ""); err != nil {
		t.Fatalf("UpdateField err: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		var payload map[string]any
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if v, ok := payload["value"]; !ok || v != "" {
			t.Fatalf("expected empty value key, got %s", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestSubmitMissingFieldsMakesNoChange(t *testing.T) {
	mgr, st, notifier := newTestManager(t)
	ctx := context.Background()

	created, _ := mgr.CreateSession(ctx, "job_002", "")
	_, _ = mgr.UpdateField(ctx, created.SessionID, "name", "Ada")

	before, _ := st.HGetAll(ctx, store.DraftKey(created.SessionID))

	_, err := mgr.Submit(ctx, created.SessionID, "job_002")
	if !apperr.Is(err, apperr.ErrTypeValidation) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	missing := apperr.MissingFields(err)
	if len(missing) != 2 || missing[0] != "email" || missing[1] != "phone" {
		t.Fatalf("unexpected missing %v", missing)
	}

	after, _ := st.HGetAll(ctx, store.DraftKey(created.SessionID))
	if len(after) != len(before) {
		t.Fatalf("draft mutated: before %v after %v", before, after)
	}
	if ids, _ := st.LRange(ctx, store.JobApplicationsKey("job_002"), 0, -1); len(ids) != 0 {
		t.Fatalf("unexpected job applications %v", ids)
	}
	if keys, _ := st.ScanPrefix(ctx, store.SubmittedPrefix); len(keys) != 0 {
		t.Fatalf("unexpected submitted records %v", keys)
	}
	if _, err := st.Get(ctx, store.SubmissionMarkerKey(created.SessionID)); err != store.ErrNotFound {
		t.Fatalf("marker must not be set, got %v", err)
	}
	if len(notifier.records) != 0 {
		t.Fatal("notifier must not be called")
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	mgr, st, notifier := newTestManager(t)
	ctx := context.Background()

	created, _ := mgr.CreateSession(ctx, "job_003", "")
	fillRequired(t, mgr, created.SessionID)

	first, err := mgr.Submit(ctx, created.SessionID, "job_003")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if first.AlreadySubmitted || first.ApplicationID == "" || first.JobID != "job_003" {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := mgr.Submit(ctx, created.SessionID, "job_003")
	if err != nil {
		t.Fatalf("second Submit err: %v", err)
	}
	if !second.AlreadySubmitted || second.ApplicationID != first.ApplicationID || second.JobID != "job_003" {
		t.Fatalf("unexpected second result %+v", second)
	}

	ids, _ := st.LRange(ctx, store.JobApplicationsKey("job_003"), 0, -1)
	if len(ids) != 1 || ids[0] != first.ApplicationID {
		t.Fatalf("expected one job application, got %v", ids)
	}
	if keys, _ := st.ScanPrefix(ctx, store.SubmittedPrefix); len(keys) != 1 {
		t.Fatalf("expected one submitted record, got %v", keys)
	}
	if draft, _ := st.HGetAll(ctx, store.DraftKey(created.SessionID)); len(draft) != 0 {
		t.Fatalf("expected draft deleted, got %v", draft)
	}
	if len(notifier.records) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.records))
	}

	sess, _ := mgr.GetSession(ctx, created.SessionID)
	if !sess.Submitted || sess.ApplicationID != first.ApplicationID {
		t.Fatalf("session not marked submitted: %+v", sess)
	}

	records, _ := mgr.ListSubmitted(ctx, "job_003")
	if len(records) != 1 || records[0].Fields["name"] != "Ada Lovelace" || records[0].Status != model.StatusSubmitted {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestSubmitConcurrentCallsCreateOneRecord(t *testing.T) {
	mgr, st, _ := newTestManager(t)
	ctx := context.Background()

	created, _ := mgr.CreateSession(ctx, "job_004", "")
	fillRequired(t, mgr, created.SessionID)

	var wg sync.WaitGroup
	results := make([]model.SubmitResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = mgr.Submit(ctx, created.SessionID, "job_004")
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Submit %d err: %v", i, err)
		}
		if !results[i].AlreadySubmitted {
			fresh++
		}
	}
	if fresh != 1 {
		t.Fatalf("expected exactly one fresh submission, got %d", fresh)
	}
	if ids, _ := st.LRange(ctx, store.JobApplicationsKey("job_004"), 0, -1); len(ids) != 1 {
		t.Fatalf("expected one job application, got %v", ids)
	}
}

func TestSubmitUsesSessionJob(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	created, _ := mgr.CreateSession(ctx, "job_001", "")
	fillRequired(t, mgr, created.SessionID)

	res, err := mgr.Submit(ctx, created.SessionID, "job_006")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if res.JobID != "job_001" {
		t.Fatalf("expected session job to win, got %s", res.JobID)
	}
}

func TestListJobsNewestFirst(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	jobs, err := mgr.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs err: %v", err)
	}
	if len(jobs) != 6 || jobs[0].ID != "job_001" || jobs[5].ID != "job_006" {
		t.Fatalf("unexpected order %v", jobs)
	}
}

func TestGetJobReadsThroughStore(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seed := job.Seed(time.Now())[1]
	_ = st.HSet(ctx, store.JobKey(seed.ID), seed.ToHash())

	mgr := application.NewManager(st, application.Options{})
	got, err := mgr.GetJob(ctx, seed.ID)
	if err != nil {
		t.Fatalf("GetJob err: %v", err)
	}
	if got != seed {
		t.Fatalf("unexpected job %+v", got)
	}

	// Served from cache once loaded.
	_ = st.Del(ctx, store.JobKey(seed.ID))
	if _, err := mgr.GetJob(ctx, seed.ID); err != nil {
		t.Fatalf("expected cached job, got %v", err)
	}
}
