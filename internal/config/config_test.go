package config_test

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdfsum/internal/config"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("SCRATCH_DIR", "")
	t.Setenv("SUMMARY_INSTRUCTION", "")

	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SummarizerBackend != config.BackendGenerate {
		t.Fatalf("unexpected backend: %q", cfg.SummarizerBackend)
	}

	if cfg.SummarizerURL != "http://localhost:11434/api/generate" {
		t.Fatalf("unexpected summarizer URL: %q", cfg.SummarizerURL)
	}

	if cfg.SummarizerModel != "llama3" {
		t.Fatalf("unexpected model: %q", cfg.SummarizerModel)
	}

	if cfg.SummarizerTimeout != 2*time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.SummarizerTimeout)
	}

	if cfg.Instruction != config.DefaultInstruction {
		t.Fatalf("unexpected instruction: %q", cfg.Instruction)
	}

	if filepath.Base(cfg.ScratchDir) != "pdfsum" {
		t.Fatalf("unexpected scratch dir: %q", cfg.ScratchDir)
	}

	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}

	if cfg.SummaryCacheSize != 0 {
		t.Fatalf("expected summary cache to be disabled, got size %d", cfg.SummaryCacheSize)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("SUMMARIZER_URL", " http://summarizer:11434/api/generate ")
	t.Setenv("SUMMARIZER_MODEL", "mistral")
	t.Setenv("SUMMARIZER_TIMEOUT", "15s")
	t.Setenv("SUMMARY_INSTRUCTION", "Summarize briefly.")
	t.Setenv("ALLOWED_USERS", "1,2,3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SummarizerURL != "http://summarizer:11434/api/generate" {
		t.Fatalf("expected trimmed URL, got %q", cfg.SummarizerURL)
	}

	if cfg.SummarizerModel != "mistral" || cfg.SummarizerTimeout != 15*time.Second {
		t.Fatalf("unexpected model or timeout: %q %s", cfg.SummarizerModel, cfg.SummarizerTimeout)
	}

	if cfg.Instruction != "Summarize briefly." {
		t.Fatalf("unexpected instruction: %q", cfg.Instruction)
	}

	if len(cfg.AllowedUsers) != 3 || cfg.AllowedUsers[2] != 3 {
		t.Fatalf("unexpected allowed users: %v", cfg.AllowedUsers)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			"Unknown backend",
			map[string]string{"SUMMARIZER_BACKEND": "carrier-pigeon"},
			"unknown SUMMARIZER_BACKEND",
		},
		{
			"OpenAI backend without credentials",
			map[string]string{"SUMMARIZER_BACKEND": "openai", "OPENAI_API_KEY": "", "OPENAI_BASE_URL": ""},
			"OPENAI_API_KEY or OPENAI_BASE_URL",
		},
		{
			"Non-positive upload limit",
			map[string]string{"MAX_UPLOAD_BYTES": "0"},
			"MAX_UPLOAD_BYTES must be positive",
		},
		{
			"Malformed timeout",
			map[string]string{"SUMMARIZER_TIMEOUT": "soon"},
			"parse env",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}

			_, err := config.Parse()
			if err == nil {
				t.Fatalf("expected error")
			}

			if !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("expected error to mention %q, got %v", test.wantErr, err)
			}
		})
	}
}
