package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Keyword.EdgeNGramMin != 2 || cfg.Keyword.EdgeNGramMax != 8 {
		t.Fatalf("expected default edge n-gram bounds 2/8, got %d/%d", cfg.Keyword.EdgeNGramMin, cfg.Keyword.EdgeNGramMax)
	}
	if cfg.Embedder.Dimension != 384 {
		t.Fatalf("expected default dimension 384, got %d", cfg.Embedder.Dimension)
	}
	if cfg.Search.HybridCandidateMultiplier != 4 || cfg.Search.HybridCandidateCap != 200 {
		t.Fatalf("expected default hybrid candidate sizing 4/200, got %d/%d", cfg.Search.HybridCandidateMultiplier, cfg.Search.HybridCandidateCap)
	}
	if cfg.Search.RRFConstant != 60 {
		t.Fatalf("expected default RRF constant 60, got %d", cfg.Search.RRFConstant)
	}
	if cfg.Search.TypeFilterPushdown {
		t.Fatalf("expected type filter pushdown to default false")
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Keyword.EdgeNGramMax = 12
	ApplyDefaults(cfg)

	if cfg.Keyword.EdgeNGramMax != 12 {
		t.Fatalf("expected explicit edge n-gram max preserved, got %d", cfg.Keyword.EdgeNGramMax)
	}
	if cfg.Keyword.EdgeNGramMin != 2 {
		t.Fatalf("expected default edge n-gram min, got %d", cfg.Keyword.EdgeNGramMin)
	}
}

func TestLoadExpandsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "xfeed.yaml")
	contents := "storage:\n  database_path: ./data/xfeed.db\n"
	if err := writeTestFile(cfgPath, contents); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "data", "xfeed.db")
	if cfg.Storage.DatabasePath != want {
		t.Fatalf("expected expanded path %q, got %q", want, cfg.Storage.DatabasePath)
	}
}
