package tools_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
	application "github.com/zhouzirui/job-voice/backend/internal/service/application"
	"github.com/zhouzirui/job-voice/backend/internal/store"
	"github.com/zhouzirui/job-voice/backend/internal/tools"
)

func setupRegistry(t *testing.T) (*tools.Registry, *application.Manager) {
	t.Helper()
	mgr := application.NewManager(store.NewMemoryStore(), application.Options{})
	if err := mgr.SeedJobs(context.Background(), job.Seed(time.Now())); err != nil {
		t.Fatalf("SeedJobs err: %v", err)
	}
	return tools.NewVocabulary(mgr, nil), mgr
}

func TestVocabularyListsEveryTool(t *testing.T) {
	reg, _ := setupRegistry(t)
	want := []string{
		tools.GetApplicationStatus,
		tools.GetEncouragement,
		tools.GetJobDetails,
		tools.SubmitApplication,
		tools.SubmitKeySkills,
		tools.SubmitPersonalStatement,
		tools.UpdateApplicationField,
	}
	defs := reg.Definitions()
	if len(defs) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(defs))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Fatalf("tool %d: expected %s, got %s", i, want[i], def.Name)
		}
		if def.InputSchema.Type != "object" {
			t.Fatalf("%s: schema type %q", def.Name, def.InputSchema.Type)
		}
	}
}

func TestCallUnknownToolIsUnsupported(t *testing.T) {
	reg, _ := setupRegistry(t)
	_, err := reg.Call(context.Background(), "drop_tables", nil)
	if !apperr.Is(err, apperr.ErrTypeUnsupportedMethod) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
}

func TestCallMissingParamsEnvelope(t *testing.T) {
	reg, _ := setupRegistry(t)
	res, err := reg.Call(context.Background(), tools.UpdateApplicationField, tools.Args{"session_id": "s1", "field_name": "  "})
	if err != nil {
		t.Fatalf("Call err: %v", err)
	}
	if res.Success() {
		t.Fatalf("expected failure envelope, got %v", res)
	}
	missing, _ := res["missing_params"].([]string)
	if len(missing) != 2 || missing[0] != "field_name" || missing[1] != "value" {
		t.Fatalf("unexpected missing params: %v", res["missing_params"])
	}
}

func TestUpdateFieldTruncatesPreviewOnly(t *testing.T) {
	reg, mgr := setupRegistry(t)
	ctx := context.Background()
	long := strings.Repeat("é", 150)

	res, err := reg.Call(ctx, tools.UpdateApplicationField, tools.Args{"session_id": "s1", "field_name": "cover_letter", "value": long})
	if err != nil || !res.Success() {
		t.Fatalf("Call res=%v err=%v", res, err)
	}
	if want := strings.Repeat("é", 100) + "..."; res["value"] != want {
		t.Fatalf("unexpected preview %q", res["value"])
	}
	if res["message"] == "" {
		t.Fatal("expected field message")
	}

	status, err := mgr.GetStatus(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStatus err: %v", err)
	}
	if status.ApplicationData["cover_letter"] != long {
		t.Fatal("stored value was truncated")
	}
}

func TestUpdateFieldEmptyValueClearsField(t *testing.T) {
	reg, mgr := setupRegistry(t)
	ctx := context.Background()

	if _, err := mgr.UpdateField(ctx, "s1", "email", "ada@example.com"); err != nil {
		t.Fatalf("UpdateField err: %v", err)
	}
	res, err := reg.Call(ctx, tools.UpdateApplicationField, tools.Args{"session_id": "s1", "field_name": "email", "value": ""})
	if err != nil || !res.Success() {
		t.Fatalf("Call res=%v err=%v", res, err)
	}

	status, err := mgr.GetStatus(ctx, "s1")
	if err != nil {
		t.Fatalf("GetStatus err: %v", err)
	}
	if v, ok := status.ApplicationData["email"]; !ok || v != "" {
		t.Fatalf("expected cleared email, got %q (present=%v)", v, ok)
	}
	for _, f := range status.Filled.Required {
		if f == "email" {
			t.Fatal("cleared email still counted as filled")
		}
	}
}

func TestUpdateFieldInvalidNameIsEnvelope(t *testing.T) {
	reg, _ := setupRegistry(t)
	res, err := reg.Call(context.Background(), tools.UpdateApplicationField, tools.Args{"session_id": "s1", "field_name": "Bad Name", "value": "x"})
	if err != nil {
		t.Fatalf("Call err: %v", err)
	}
	if res.Success() || res["error_type"] != string(apperr.ErrTypeInvalidInput) {
		t.Fatalf("unexpected result %v", res)
	}
}

func TestSubmitReportsMissingFields(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()
	if _, err := reg.Call(ctx, tools.UpdateApplicationField, tools.Args{"session_id": "s1", "field_name": "name", "value": "Ada"}); err != nil {
		t.Fatalf("Call err: %v", err)
	}

	res, err := reg.Call(ctx, tools.SubmitApplication, tools.Args{"session_id": "s1", "job_id": "job_001"})
	if err != nil {
		t.Fatalf("Call err: %v", err)
	}
	if res.Success() {
		t.Fatalf("expected failure, got %v", res)
	}
	missing, _ := res["missing_fields"].([]string)
	if len(missing) != 2 || missing[0] != "email" || missing[1] != "phone" {
		t.Fatalf("unexpected missing fields %v", res["missing_fields"])
	}
}

func TestSubmitTwiceIsIdempotent(t *testing.T) {
	reg, mgr := setupRegistry(t)
	ctx := context.Background()
	created, err := mgr.CreateSession(ctx, "job_002", "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	for field, value := range map[string]string{"name": "Ada", "email": "ada@example.com", "phone": "123"} {
		if _, err := reg.Call(ctx, tools.UpdateApplicationField, tools.Args{"session_id": created.SessionID, "field_name": field, "value": value}); err != nil {
			t.Fatalf("Call err: %v", err)
		}
	}

	first, _ := reg.Call(ctx, tools.SubmitApplication, tools.Args{"session_id": created.SessionID, "job_id": "job_002"})
	second, _ := reg.Call(ctx, tools.SubmitApplication, tools.Args{"session_id": created.SessionID, "job_id": "job_002"})
	if !first.Success() || !second.Success() {
		t.Fatalf("expected success twice, got %v / %v", first, second)
	}
	if first["already_submitted"] != false || second["already_submitted"] != true {
		t.Fatalf("unexpected flags %v / %v", first["already_submitted"], second["already_submitted"])
	}
	if first["application_id"] != second["application_id"] {
		t.Fatalf("application id changed: %v vs %v", first["application_id"], second["application_id"])
	}
}

func TestSkillAliasesWriteNamedFields(t *testing.T) {
	reg, mgr := setupRegistry(t)
	ctx := context.Background()
	if res, _ := reg.Call(ctx, tools.SubmitKeySkills, tools.Args{"session_id": "s9", "skills_text": "Led migrations"}); !res.Success() {
		t.Fatalf("submit_key_skills failed: %v", res)
	}
	if res, _ := reg.Call(ctx, tools.SubmitPersonalStatement, tools.Args{"session_id": "s9", "statement_text": "I like hard problems"}); !res.Success() {
		t.Fatalf("submit_personal_statement failed: %v", res)
	}
	status, _ := mgr.GetStatus(ctx, "s9")
	if status.ApplicationData["key_skills"] != "Led migrations" || status.ApplicationData["personal_statement"] != "I like hard problems" {
		t.Fatalf("unexpected data %v", status.ApplicationData)
	}
}

func TestGetJobDetailsLocalizes(t *testing.T) {
	reg, _ := setupRegistry(t)
	res, err := reg.Call(context.Background(), tools.GetJobDetails, tools.Args{"job_id": "job_001", "language": "de"})
	if err != nil || !res.Success() {
		t.Fatalf("Call res=%v err=%v", res, err)
	}
	j, ok := res["job"].(job.Job)
	if !ok || j.ID != "job_001" {
		t.Fatalf("unexpected job %v", res["job"])
	}

	res, _ = reg.Call(context.Background(), tools.GetJobDetails, tools.Args{"job_id": "job_404"})
	if res.Success() || res["error_type"] != string(apperr.ErrTypeNotFound) {
		t.Fatalf("expected not found envelope, got %v", res)
	}
}

func TestGetEncouragementDefaultsToGeneral(t *testing.T) {
	reg, _ := setupRegistry(t)
	res, _ := reg.Call(context.Background(), tools.GetEncouragement, nil)
	if !res.Success() || res["context"] != "general" || res["message"] == "" {
		t.Fatalf("unexpected result %v", res)
	}
}
