package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.MaxReasoningDepth != 3 || cfg.SearchWidth != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ScoringWeights.DepthDecay != 0.8 {
		t.Fatalf("expected depth decay 0.8, got %v", cfg.ScoringWeights.DepthDecay)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := Default()
	cfg.EntitySimilarityThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for threshold > 1")
	}
}

func TestValidateRejectsNonPositiveDepth(t *testing.T) {
	cfg := Default()
	cfg.MaxReasoningDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for zero depth")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxReasoningDepth != 3 {
		t.Fatalf("expected default depth, got %d", cfg.MaxReasoningDepth)
	}
}

func TestLoadExpandsEnvVarsAndOverridesSessionBudget(t *testing.T) {
	t.Setenv("GRAPH_DEPTH", "5")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "max_reasoning_depth: ${GRAPH_DEPTH:-2}\nsession_budget_ms: 15000\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxReasoningDepth != 5 {
		t.Fatalf("expected env-expanded depth 5, got %d", cfg.MaxReasoningDepth)
	}
	if cfg.SessionBudget != 15*time.Second {
		t.Fatalf("expected 15s session budget, got %v", cfg.SessionBudget)
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("GRAPHREASON_MAX_ENTITIES", "250")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxEntities != 250 {
		t.Fatalf("expected override to 250, got %d", cfg.MaxEntities)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_reasoning_depth: -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error from negative depth")
	}
}
