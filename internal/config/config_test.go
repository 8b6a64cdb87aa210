package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HashCount != 20 {
		t.Errorf("HashCount = %d, want 20", cfg.HashCount)
	}
	if cfg.ShingleLen != 3 {
		t.Errorf("ShingleLen = %d, want 3", cfg.ShingleLen)
	}
	if cfg.SimilarityThreshold != 0.75 {
		t.Errorf("SimilarityThreshold = %v, want 0.75", cfg.SimilarityThreshold)
	}
	if cfg.FlushThreshold != 50 {
		t.Errorf("FlushThreshold = %d, want 50", cfg.FlushThreshold)
	}
	if cfg.FlushInterval() != 30*time.Second {
		t.Errorf("FlushInterval = %v, want 30s", cfg.FlushInterval())
	}
	if cfg.MinSectionSize != 100 || cfg.MaxSectionSize != 500 {
		t.Errorf("section bounds = %d..%d, want 100..500", cfg.MinSectionSize, cfg.MaxSectionSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HashCount != DefaultConfig().HashCount {
		t.Error("missing config file should yield defaults")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	data := `{"flush_threshold": 5, "similarity_threshold": 0.9, "denied_sources": ["secrets"]}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.FlushThreshold != 5 {
		t.Errorf("FlushThreshold = %d, want 5", cfg.FlushThreshold)
	}
	if cfg.SimilarityThreshold != 0.9 {
		t.Errorf("SimilarityThreshold = %v, want 0.9", cfg.SimilarityThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.HashCount != 20 {
		t.Errorf("HashCount = %d, want default 20", cfg.HashCount)
	}
	if !cfg.SourceDenied("secrets") {
		t.Error("denied_sources from file not applied")
	}
	if cfg.SourceDenied("editor") {
		t.Error("unlisted source reported as denied")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid JSON config")
	}
}

func TestMergeStringSlices(t *testing.T) {
	base := &Config{DeniedSources: []string{"a", "b"}}
	overlay := &Config{DeniedSources: []string{" b ", "c", ""}}

	got := Merge(base, overlay)

	want := []string{"a", "b", "c"}
	if len(got.DeniedSources) != len(want) {
		t.Fatalf("DeniedSources = %v, want %v", got.DeniedSources, want)
	}
	for i := range want {
		if got.DeniedSources[i] != want[i] {
			t.Errorf("DeniedSources[%d] = %q, want %q", i, got.DeniedSources[i], want[i])
		}
	}
}
