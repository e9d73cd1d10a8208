package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "N8N_IMAGE_WEBHOOK_URL", "WEBHOOK_MODE",
		"REQUEST_COOLDOWN_MS", "REQUEST_TIMEOUT_MS", "FEEDBACK_WEBHOOK_URL", "FEEDBACK_API_KEY",
		"MIN_CONTENT_LENGTH", "TEXT_RESPONSE_FIELDS", "IMAGE_RESPONSE_FIELDS",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("N8N_WEBHOOK_URL", "https://n8n.example.com/webhook/dr-gini")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Webhook.Mode != "single" || cfg.Webhook.Dual() {
		t.Fatalf("unexpected mode %q", cfg.Webhook.Mode)
	}
	if cfg.Webhook.Cooldown != 180*time.Second || cfg.Webhook.Timeout != 30*time.Second {
		t.Fatalf("unexpected throttling %s / %s", cfg.Webhook.Cooldown, cfg.Webhook.Timeout)
	}
	if cfg.Feedback.URL != "" || cfg.Normalizer.TextFields != nil || cfg.Normalizer.MinContentLength != 0 {
		t.Fatalf("unexpected optional config %+v %+v", cfg.Feedback, cfg.Normalizer)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("N8N_IMAGE_WEBHOOK_URL", "https://n8n.example.com/webhook/image")
	t.Setenv("WEBHOOK_MODE", "DUAL")
	t.Setenv("REQUEST_COOLDOWN_MS", "30000")
	t.Setenv("REQUEST_TIMEOUT_MS", "45000")
	t.Setenv("FEEDBACK_WEBHOOK_URL", "https://db.example.com/rest/v1/feedback")
	t.Setenv("FEEDBACK_API_KEY", "secret")
	t.Setenv("MIN_CONTENT_LENGTH", "5")
	t.Setenv("TEXT_RESPONSE_FIELDS", "output, data.answer ,,text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" || len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if !cfg.Webhook.Dual() || cfg.Webhook.Cooldown != 30*time.Second || cfg.Webhook.Timeout != 45*time.Second {
		t.Fatalf("unexpected webhook config %+v", cfg.Webhook)
	}
	if cfg.Feedback.APIKey != "secret" {
		t.Fatalf("unexpected feedback config %+v", cfg.Feedback)
	}
	want := []string{"output", "data.answer", "text"}
	if strings.Join(cfg.Normalizer.TextFields, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected text fields %v", cfg.Normalizer.TextFields)
	}
	if cfg.Normalizer.MinContentLength != 5 {
		t.Fatalf("unexpected min length %d", cfg.Normalizer.MinContentLength)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing webhook":       {"N8N_WEBHOOK_URL": ""},
		"bad webhook url":       {"N8N_WEBHOOK_URL": "ftp://example.com/hook"},
		"dual without image":    {"WEBHOOK_MODE": "dual"},
		"unknown mode":          {"WEBHOOK_MODE": "triple"},
		"bad cooldown":          {"REQUEST_COOLDOWN_MS": "soon"},
		"negative cooldown":     {"REQUEST_COOLDOWN_MS": "-1"},
		"zero timeout":          {"REQUEST_TIMEOUT_MS": "0"},
		"bad port":              {"PORT": "80 80"},
		"bad min length":        {"MIN_CONTENT_LENGTH": "0"},
		"bad feedback endpoint": {"FEEDBACK_WEBHOOK_URL": "not a url"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
