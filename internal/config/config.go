// Package config loads kestrel configuration. Values are applied in order of
// increasing precedence: hardcoded defaults, a project config file
// (.kestrel.yaml in the working directory), then KESTREL_* environment
// variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// Config is the complete kestrel configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Search     SearchConfig     `yaml:"search"`
	Expansion  ExpansionConfig  `yaml:"expansion"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Suggest    SuggestConfig    `yaml:"suggest"`
	History    HistoryConfig    `yaml:"history"`
	Log        LogConfig        `yaml:"log"`
}

// StorageConfig locates the on-disk state. An empty DataDir keeps everything
// in memory, which is what the tests use.
type StorageConfig struct {
	// DataDir is the root directory for the SQLite database and both
	// retrieval indexes. Empty means in-memory only.
	DataDir string `yaml:"data_dir"`
}

// DatabasePath returns the SQLite path, or ":memory:" when no data dir is set.
func (s StorageConfig) DatabasePath() string {
	if s.DataDir == "" {
		return ":memory:"
	}
	return filepath.Join(s.DataDir, "kestrel.db")
}

// KeywordIndexPath returns the bleve index path, or "" for in-memory.
func (s StorageConfig) KeywordIndexPath() string {
	if s.DataDir == "" {
		return ""
	}
	return filepath.Join(s.DataDir, "keyword.bleve")
}

// VectorIndexPath returns the HNSW snapshot path, or "" for in-memory.
func (s StorageConfig) VectorIndexPath() string {
	if s.DataDir == "" {
		return ""
	}
	return filepath.Join(s.DataDir, "vectors.hnsw")
}

// SearchConfig tunes hybrid retrieval and fusion.
type SearchConfig struct {
	// KeywordWeight and VectorWeight scale each backend's RRF contribution.
	KeywordWeight float64 `yaml:"keyword_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`

	// RRFConstant is the rank smoothing parameter k.
	RRFConstant int `yaml:"rrf_constant"`

	// MaxResults caps results per query.
	MaxResults int `yaml:"max_results"`

	// RetrieverTimeout bounds each backend call, e.g. "2s".
	RetrieverTimeout string `yaml:"retriever_timeout"`

	// CacheSize and CacheTTL configure the fused-result cache.
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  string `yaml:"cache_ttl"`

	// BreakerMaxFailures opens the vector-path circuit breaker after this
	// many consecutive failures. BreakerResetTimeout is the open-state
	// cooldown before a probe is allowed, e.g. "30s".
	BreakerMaxFailures  int    `yaml:"breaker_max_failures"`
	BreakerResetTimeout string `yaml:"breaker_reset_timeout"`
}

// RetrieverTimeoutDuration parses RetrieverTimeout, falling back to 2s.
func (s SearchConfig) RetrieverTimeoutDuration() time.Duration {
	return parseDurationOr(s.RetrieverTimeout, 2*time.Second)
}

// CacheTTLDuration parses CacheTTL, falling back to 5m.
func (s SearchConfig) CacheTTLDuration() time.Duration {
	return parseDurationOr(s.CacheTTL, 5*time.Minute)
}

// BreakerResetTimeoutDuration parses BreakerResetTimeout, falling back to 30s.
func (s SearchConfig) BreakerResetTimeoutDuration() time.Duration {
	return parseDurationOr(s.BreakerResetTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ExpansionConfig tunes synonym expansion.
type ExpansionConfig struct {
	// Licensed gates expansion entirely.
	Licensed bool `yaml:"licensed"`

	// MaxSynonymsPerTerm caps expansions per keyword.
	MaxSynonymsPerTerm int `yaml:"max_synonyms_per_term"`

	// MinWeight drops weaker synonyms.
	MinWeight float64 `yaml:"min_weight"`

	// IncludeAlgorithmic enables stemming-derived variants.
	IncludeAlgorithmic bool `yaml:"include_algorithmic"`
}

// EmbeddingsConfig configures the embedder.
type EmbeddingsConfig struct {
	// Dimensions is the embedding width. Zero uses the embedder default.
	Dimensions int `yaml:"dimensions"`
}

// SuggestConfig tunes autocomplete.
type SuggestConfig struct {
	// Limit is the maximum suggestions per prefix.
	Limit int `yaml:"limit"`
}

// HistoryConfig tunes query history tracking.
type HistoryConfig struct {
	// MaxEntries is the retention ceiling; oldest entries are pruned past it.
	MaxEntries int `yaml:"max_entries"`

	// Anonymize replaces stored query text with a digest.
	Anonymize bool `yaml:"anonymize"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "",
		},
		Search: SearchConfig{
			KeywordWeight:       1.0,
			VectorWeight:        1.0,
			RRFConstant:         60,
			MaxResults:          10,
			RetrieverTimeout:    "2s",
			CacheSize:           512,
			CacheTTL:            "5m",
			BreakerMaxFailures:  5,
			BreakerResetTimeout: "30s",
		},
		Expansion: ExpansionConfig{
			Licensed:           true,
			MaxSynonymsPerTerm: 3,
			MinWeight:          0.3,
			IncludeAlgorithmic: true,
		},
		Embeddings: EmbeddingsConfig{
			Dimensions: 0,
		},
		Suggest: SuggestConfig{
			Limit: 8,
		},
		History: HistoryConfig{
			MaxEntries: 10000,
			Anonymize:  false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration for a project directory.
func Load(dir string) (*Config, error) {
	cfg := New()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	cfg := New()

	if !fileExists(path) {
		return nil, kerrors.New(kerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s does not exist", path), nil)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads .kestrel.yaml or .kestrel.yml from dir if present.
// A missing file is fine, defaults apply.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".kestrel.yaml", ".kestrel.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return kerrors.New(kerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("reading config file %s: %v", path, err), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("parsing config file %s: %v", path, err), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies non-zero values from other into c. Booleans cannot be
// distinguished from "not set", so boolean fields are merged only when a
// sibling field in the same section was set.
func (c *Config) mergeWith(other *Config) {
	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}

	if other.Search.KeywordWeight != 0 {
		c.Search.KeywordWeight = other.Search.KeywordWeight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.RetrieverTimeout != "" {
		c.Search.RetrieverTimeout = other.Search.RetrieverTimeout
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}
	if other.Search.CacheTTL != "" {
		c.Search.CacheTTL = other.Search.CacheTTL
	}
	if other.Search.BreakerMaxFailures != 0 {
		c.Search.BreakerMaxFailures = other.Search.BreakerMaxFailures
	}
	if other.Search.BreakerResetTimeout != "" {
		c.Search.BreakerResetTimeout = other.Search.BreakerResetTimeout
	}

	if other.Expansion.MaxSynonymsPerTerm != 0 {
		c.Expansion.MaxSynonymsPerTerm = other.Expansion.MaxSynonymsPerTerm
		c.Expansion.Licensed = other.Expansion.Licensed
		c.Expansion.IncludeAlgorithmic = other.Expansion.IncludeAlgorithmic
	}
	if other.Expansion.MinWeight != 0 {
		c.Expansion.MinWeight = other.Expansion.MinWeight
	}

	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}

	if other.Suggest.Limit != 0 {
		c.Suggest.Limit = other.Suggest.Limit
	}

	if other.History.MaxEntries != 0 {
		c.History.MaxEntries = other.History.MaxEntries
		c.History.Anonymize = other.History.Anonymize
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// applyEnvOverrides applies KESTREL_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KESTREL_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KESTREL_KEYWORD_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 {
			c.Search.KeywordWeight = w
		}
	}
	if v := os.Getenv("KESTREL_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("KESTREL_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("KESTREL_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("KESTREL_LICENSED"); v != "" {
		c.Expansion.Licensed = isTruthy(v)
	}
	if v := os.Getenv("KESTREL_ANONYMIZE_HISTORY"); v != "" {
		c.History.Anonymize = isTruthy(v)
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("KESTREL_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

func isTruthy(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Search.KeywordWeight < 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.keyword_weight must be non-negative, got %f", c.Search.KeywordWeight), nil)
	}
	if c.Search.VectorWeight < 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.vector_weight must be non-negative, got %f", c.Search.VectorWeight), nil)
	}
	if math.Abs(c.Search.KeywordWeight)+math.Abs(c.Search.VectorWeight) == 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			"search weights must not both be zero", nil)
	}
	if c.Search.RRFConstant <= 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant), nil)
	}
	if c.Search.MaxResults <= 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.max_results must be positive, got %d", c.Search.MaxResults), nil)
	}
	if c.Search.BreakerMaxFailures <= 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search.breaker_max_failures must be positive, got %d", c.Search.BreakerMaxFailures), nil)
	}
	for _, d := range []struct{ name, value string }{
		{"search.retriever_timeout", c.Search.RetrieverTimeout},
		{"search.cache_ttl", c.Search.CacheTTL},
		{"search.breaker_reset_timeout", c.Search.BreakerResetTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return kerrors.New(kerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("%s is not a valid duration: %s", d.name, d.value), err)
		}
	}
	if c.Expansion.MinWeight < 0 || c.Expansion.MinWeight > 1 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("expansion.min_weight must be between 0 and 1, got %f", c.Expansion.MinWeight), nil)
	}
	if c.Embeddings.Dimensions < 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions), nil)
	}
	if c.History.MaxEntries <= 0 {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("history.max_entries must be positive, got %d", c.History.MaxEntries), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("log.level must be debug, info, warn, or error, got %s", c.Log.Level), nil)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("log.format must be json or text, got %s", c.Log.Format), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return kerrors.New(kerrors.ErrCodeConfigInvalid, "marshaling config: "+err.Error(), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.New(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("writing config file %s: %v", path, err), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
