package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Models.Default != "base" {
		t.Errorf("Models.Default = %q, want base", cfg.Models.Default)
	}
	if cfg.Models.Repo != "ggerganov/whisper.cpp" {
		t.Errorf("Models.Repo = %q", cfg.Models.Repo)
	}
	if cfg.Engine.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("Engine.BaseURL = %q", cfg.Engine.BaseURL)
	}
	if cfg.Engine.RequestTimeout != 30*time.Minute {
		t.Errorf("Engine.RequestTimeout = %v, want 30m", cfg.Engine.RequestTimeout)
	}
	if cfg.Transcribe.Language != "auto" {
		t.Errorf("Transcribe.Language = %q, want auto", cfg.Transcribe.Language)
	}
	if cfg.Playback.ScrollThreshold != 0.3 {
		t.Errorf("Playback.ScrollThreshold = %v, want 0.3", cfg.Playback.ScrollThreshold)
	}
	if cfg.Playback.ForcedScrollWindow != time.Second {
		t.Errorf("Playback.ForcedScrollWindow = %v, want 1s", cfg.Playback.ForcedScrollWindow)
	}
	if len(cfg.Watch.Patterns) == 0 {
		t.Error("Watch.Patterns should have defaults")
	}
	if !cfg.Watch.ProcessExisting {
		t.Error("Watch.ProcessExisting should default to true")
	}
}

func TestLoaderDefaultsWithoutFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	// An explicitly named but missing file is an error.
	if _, err := loader.Load(); err == nil {
		t.Error("Load() should fail for an explicit missing config file")
	}
}

func TestLoaderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
models:
  default: small
engine:
  base_url: http://127.0.0.1:9090
transcribe:
  language: de
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loader := NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Models.Default != "small" {
		t.Errorf("Models.Default = %q, want small", cfg.Models.Default)
	}
	if cfg.Engine.BaseURL != "http://127.0.0.1:9090" {
		t.Errorf("Engine.BaseURL = %q", cfg.Engine.BaseURL)
	}
	if cfg.Transcribe.Language != "de" {
		t.Errorf("Transcribe.Language = %q, want de", cfg.Transcribe.Language)
	}

	// Unset keys keep defaults.
	if cfg.Models.Repo != "ggerganov/whisper.cpp" {
		t.Errorf("Models.Repo = %q, want default", cfg.Models.Repo)
	}
}

func TestLoaderValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "empty default model",
			content: `
models:
  default: ""
`,
		},
		{
			name: "negative download retries",
			content: `
models:
  download_retries: -1
`,
		},
		{
			name: "empty engine base URL",
			content: `
engine:
  base_url: ""
`,
		},
		{
			name: "negative scroll threshold",
			content: `
playback:
  scroll_threshold: -0.5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			loader := NewLoader(path)
			if _, err := loader.Load(); err == nil {
				t.Error("Load() should reject invalid config")
			}
		})
	}
}
