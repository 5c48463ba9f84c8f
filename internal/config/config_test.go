package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SERVER_ADDR", ":8080")
	t.Setenv("LOG_LEVEL", "debug")
}

func TestParse_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMConnectorCfg.Model != "gemini-3-flash-preview" {
		t.Fatalf("unexpected model %q", cfg.LLMConnectorCfg.Model)
	}
	if cfg.LLMConnectorCfg.Url != "https://generativelanguage.googleapis.com" {
		t.Fatalf("unexpected url %q", cfg.LLMConnectorCfg.Url)
	}
	if cfg.ConversationTTL != 6*time.Hour {
		t.Fatalf("unexpected ttl %s", cfg.ConversationTTL)
	}
	if cfg.TelegramCfg.Retry.Attempts != 3 {
		t.Fatalf("unexpected retry attempts %d", cfg.TelegramCfg.Retry.Attempts)
	}
	if cfg.LLMConnectorCfg.APIKey != "" {
		t.Fatalf("expected empty api key")
	}
}

func TestParse_MissingAPIKeyIsNotAnError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_API_KEY", "")

	if _, err := Parse(); err != nil {
		t.Fatalf("missing api key must not fail config: %v", err)
	}
}

func TestParse_PrefixedValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_MODEL", "gemini-custom")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("TELEGRAM_RETRY_ATTEMPTS", "7")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMConnectorCfg.APIKey != "secret" || cfg.LLMConnectorCfg.Model != "gemini-custom" {
		t.Fatalf("unexpected llm config: %+v", cfg.LLMConnectorCfg)
	}
	if cfg.LLMConnectorCfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.LLMConnectorCfg.RequestTimeout)
	}
	if cfg.TelegramCfg.Retry.Attempts != 7 {
		t.Fatalf("unexpected retry attempts %d", cfg.TelegramCfg.Retry.Attempts)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_INPUT_LENGTH", "0")
	t.Setenv("TELEGRAM_RATE_LIMIT_BURST", "100")

	_, err := Parse()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "MAX_INPUT_LENGTH") || !strings.Contains(err.Error(), "TELEGRAM_RATE_LIMIT_BURST") {
		t.Fatalf("expected both violations reported, got %v", err)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("LOG_LEVEL", "debug")

	if _, err := Parse(); err == nil {
		t.Fatalf("expected error for empty SERVER_ADDR")
	}
}

func TestGetEnvFile(t *testing.T) {
	if getEnvFile("prod") != ".env.prod" || getEnvFile("dev") != ".env.local" || getEnvFile("staging") != ".env.staging" {
		t.Fatalf("unexpected env file mapping")
	}
}
