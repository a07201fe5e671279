package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SUBMISSION_RETENTION", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("MCP_BASE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Server.PublicBaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected public url %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Server.MCPBasePath != "/mcp" {
		t.Fatalf("unexpected mcp base path %q", cfg.Server.MCPBasePath)
	}
	if cfg.Application.SessionTTL != time.Hour {
		t.Fatalf("expected 1h session ttl, got %s", cfg.Application.SessionTTL)
	}
	if cfg.Application.SubmissionRetention != 7*24*time.Hour {
		t.Fatalf("expected 7d retention, got %s", cfg.Application.SubmissionRetention)
	}
	if cfg.Store.Backend != StoreBackendAuto {
		t.Fatalf("expected auto backend, got %s", cfg.Store.Backend)
	}
}

func TestLoadOverridesTTLInSecondsAndDurations(t *testing.T) {
	t.Setenv("SESSION_TTL", "120")
	t.Setenv("SUBMISSION_RETENTION", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Application.SessionTTL != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", cfg.Application.SessionTTL)
	}
	if cfg.Application.SubmissionRetention != 48*time.Hour {
		t.Fatalf("expected 48h, got %s", cfg.Application.SubmissionRetention)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORE_BACKEND": "etcd",
		"SESSION_TTL":   "soon",
		"PORT":          "80 80",
		"MCP_BASE_PATH": "mcp",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if (AIConfig{APIKey: "k"}).Enabled() {
		t.Fatal("expected disabled without model")
	}
	if !(AIConfig{APIKey: "k", Model: "m"}).Enabled() {
		t.Fatal("expected enabled with api key and model")
	}
	if !(AIConfig{AccessKey: "a", SecretKey: "s", Model: "m"}).Enabled() {
		t.Fatal("expected enabled with ak/sk and model")
	}
}

func TestLoadTelemetrySampleRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Telemetry.SampleRatio != 1 {
		t.Fatalf("expected default ratio 1, got %v", cfg.Telemetry.SampleRatio)
	}

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("expected ratio 0.25, got %v", cfg.Telemetry.SampleRatio)
	}

	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for ratio above 1")
	}
}
