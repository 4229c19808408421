package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("FALLBACK_DELAY_MS", "250")

	path := writeConfig(t, `
port: "8080"
sessionSecret: "file-secret"
geminiAPIKey: "file-key"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GeminiAPIKey != "env-key" {
		t.Fatalf("geminiAPIKey = %q, want env override", cfg.GeminiAPIKey)
	}
	if cfg.FallbackDelayMs != 250 {
		t.Fatalf("fallbackDelayMs = %d, want 250", cfg.FallbackDelayMs)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("logLevel default = %q, want info", cfg.LogLevel)
	}
	if cfg.SessionTTLH != 72 {
		t.Fatalf("sessionTTLHours default = %d, want 72", cfg.SessionTTLH)
	}
}

func TestLoadAllowsMissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
sessionSecret: "file-secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("geminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
}

func TestValidateConfigRequiresPort(t *testing.T) {
	path := writeConfig(t, `
sessionSecret: "file-secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing port")
	}
}

func TestValidateConfigRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
sessionSecret: "file-secret"
generationProvider: "llamafile"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
