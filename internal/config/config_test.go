package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.Mode != ModeBalanced {
		t.Errorf("expected default mode %q, got %q", ModeBalanced, cfg.Mode)
	}
	if cfg.MaxIterations != 5 {
		t.Errorf("expected default max_iterations 5, got %d", cfg.MaxIterations)
	}
	if cfg.Review.MaxRevisions != 2 {
		t.Errorf("expected default max_revisions 2, got %d", cfg.Review.MaxRevisions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestModeThresholds(t *testing.T) {
	tests := []struct {
		mode Mode
		want float64
	}{
		{ModeConservative, 0.80},
		{ModeBalanced, 0.60},
		{ModeAggressive, 0.40},
		{ModeExploratory, 0.0},
		{Mode("bogus"), 0.60},
	}
	for _, tt := range tests {
		if got := tt.mode.Threshold(); got != tt.want {
			t.Errorf("Threshold(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.autoimprove.yml")

	original := DefaultConfig()
	original.Provider = ProviderOllama
	original.Model = "llama3"
	original.Mode = ModeAggressive
	original.MaxIterations = 12
	original.Introspect.LargeFileLines = 250

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Mode != original.Mode {
		t.Errorf("mode: got %q, want %q", loaded.Mode, original.Mode)
	}
	if loaded.MaxIterations != original.MaxIterations {
		t.Errorf("max_iterations: got %d, want %d", loaded.MaxIterations, original.MaxIterations)
	}
	if loaded.Introspect.LargeFileLines != original.Introspect.LargeFileLines {
		t.Errorf("large_file_lines: got %d, want %d", loaded.Introspect.LargeFileLines, original.Introspect.LargeFileLines)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if cfg.Mode != ModeBalanced {
		t.Errorf("expected default mode, got %q", cfg.Mode)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "claude" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"bad mode", func(c *Config) { c.Mode = "yolo" }},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative rpm", func(c *Config) { c.RequestsPerMinute = -1 }},
		{"zero sandbox timeout", func(c *Config) { c.Sandbox.TimeoutSeconds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
