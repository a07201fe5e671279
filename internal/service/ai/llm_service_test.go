package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/job-voice/backend/internal/analysis/fields"
	"github.com/zhouzirui/job-voice/backend/internal/config"
	"github.com/zhouzirui/job-voice/backend/internal/model/chat"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
)

type fakeModel struct {
	reply string
	seen  []*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.seen = input
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.seen = input
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func seedJob(t *testing.T, id string) job.Job {
	t.Helper()
	for _, j := range job.Seed(time.Now()) {
		if j.ID == id {
			return j
		}
	}
	t.Fatalf("seed job %s missing", id)
	return job.Job{}
}

func TestReplySendsPromptHistoryAndQuery(t *testing.T) {
	fm := &fakeModel{reply: "  Tell me about your last project.  "}
	svc, err := NewServiceWithModel(context.Background(), fm, config.AIConfig{HistoryLimit: 2, DefaultLanguage: "en"}, nil)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	reply, err := svc.Reply(context.Background(), Turn{
		SessionID: "s1",
		Job:       seedJob(t, "job_001"),
		History: []chat.Message{
			{Role: chat.RoleUser, Content: "dropped"},
			{Role: chat.RoleAssistant, Content: "Hello!"},
			{Role: chat.RoleUser, Content: "Hi"},
		},
		Message: "I'd like to apply.",
	})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if reply != "Tell me about your last project." {
		t.Fatalf("unexpected reply %q", reply)
	}

	if len(fm.seen) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(fm.seen))
	}
	if fm.seen[0].Role != schema.System || !strings.Contains(fm.seen[0].Content, "Key Skills & Experience") {
		t.Fatalf("unexpected system message %q", fm.seen[0].Content)
	}
	if fm.seen[1].Content != "Hello!" || fm.seen[3].Content != "I'd like to apply." {
		t.Fatalf("unexpected conversation %v", fm.seen)
	}
}

func TestSystemPromptLabelsAreExtractable(t *testing.T) {
	for _, lang := range []string{"en", "de"} {
		_, tmpl := templateFor(lang)
		reply := tmpl.SkillsLabel + ":\nRan the regional rollout for two years.\n\n" + tmpl.FitLabel + ":\nI know the customers and the product well."
		res := fields.Extract(reply, lang)
		if res.Outcome != fields.Matched || len(res.Fields) != 2 {
			t.Fatalf("%s: labels not recognized by extractor: %+v", lang, res)
		}
	}
}

func TestSystemPromptUsesGermanJobText(t *testing.T) {
	j := seedJob(t, "job_001")
	prompt := BuildSystemPrompt("de-DE", j)
	if j.TitleDE != "" && !strings.Contains(prompt, j.TitleDE) {
		t.Fatalf("expected German title in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Warum Sie gut passen") {
		t.Fatalf("expected German labels in prompt:\n%s", prompt)
	}
}
