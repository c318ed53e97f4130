// Package config loads xfeed's configuration: paths for the three
// storage substrates plus the tunable knobs the spec leaves open
// (edge-n-gram bounds, hybrid search candidate sizing).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting xfeed's components need. It is an opaque
// value-provider: nothing in internal/ reaches into the environment or
// flags directly, only into a *Config built by Load and ApplyDefaults.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Storage  StorageConfig  `yaml:"storage"`
	Keyword  KeywordConfig  `yaml:"keyword"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Search   SearchConfig   `yaml:"search"`
}

// StorageConfig names the paths making up the three-substrate unit: the
// relational store file, and the index directory containing the
// keyword-index segments and the vector-index file.
type StorageConfig struct {
	DatabasePath      string `yaml:"database_path"`
	KeywordIndexPath  string `yaml:"keyword_index_path"`
	VectorIndexPath   string `yaml:"vector_index_path"`
}

// KeywordConfig tunes the keyword index's schema-level knobs.
type KeywordConfig struct {
	// EdgeNGramMin/EdgeNGramMax bound the text_prefix field's edge
	// n-grams. Resolves the "edge n-gram bounds" open question.
	EdgeNGramMin int `yaml:"edge_ngram_min"`
	EdgeNGramMax int `yaml:"edge_ngram_max"`
	// SegmentSize is the writer's auto-commit batch size.
	SegmentSize int `yaml:"segment_size"`
}

// EmbedderConfig names the embedder's fixed output dimension. There is
// no model path or tuning here: the embedder is a pure hash projection.
type EmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// SearchConfig tunes the query planner and rank fuser.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// HybridCandidateMultiplier/HybridCandidateCap implement hybrid
	// mode's K = min(HybridCandidateCap, HybridCandidateMultiplier*limit).
	HybridCandidateMultiplier int `yaml:"hybrid_candidate_multiplier"`
	HybridCandidateCap        int `yaml:"hybrid_candidate_cap"`
	// TypeFilterPushdown resolves the "--types filter pushdown" open
	// question: false applies the filter after retrieval (matching the
	// documented prior behavior); true pushes it into the vector scan.
	TypeFilterPushdown bool `yaml:"type_filter_pushdown"`
	// RRFConstant is the K in reciprocal rank fusion. Changing it changes
	// output — it's part of the fusion contract, not a free tuning knob,
	// but it is still configurable so tests can probe sensitivity.
	RRFConstant int `yaml:"rrf_constant"`
}

// Load reads and parses the YAML config file at path, expands relative
// paths against the config file's directory, and applies defaults for
// anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)

	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath resolves a relative path. Paths starting with "./" are joined
// onto configDir (so the result is absolute only when configDir is);
// other relative paths are joined onto the home directory. Absolute and
// empty paths are returned unchanged.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
