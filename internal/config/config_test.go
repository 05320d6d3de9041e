package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Search.KeywordWeight)
	assert.Equal(t, 1.0, cfg.Search.VectorWeight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 2*time.Second, cfg.Search.RetrieverTimeoutDuration())
	assert.Equal(t, 5*time.Minute, cfg.Search.CacheTTLDuration())
	assert.Equal(t, 5, cfg.Search.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Search.BreakerResetTimeoutDuration())
	assert.True(t, cfg.Expansion.Licensed)
	assert.Equal(t, 3, cfg.Expansion.MaxSynonymsPerTerm)
	assert.InDelta(t, 0.3, cfg.Expansion.MinWeight, 1e-9)
	assert.Equal(t, 8, cfg.Suggest.Limit)
	assert.Equal(t, 10000, cfg.History.MaxEntries)
	assert.False(t, cfg.History.Anonymize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestStoragePaths(t *testing.T) {
	inMemory := StorageConfig{}
	assert.Equal(t, ":memory:", inMemory.DatabasePath())
	assert.Empty(t, inMemory.KeywordIndexPath())
	assert.Empty(t, inMemory.VectorIndexPath())

	onDisk := StorageConfig{DataDir: "/var/lib/kestrel"}
	assert.Equal(t, filepath.Join("/var/lib/kestrel", "kestrel.db"), onDisk.DatabasePath())
	assert.Equal(t, filepath.Join("/var/lib/kestrel", "keyword.bleve"), onDisk.KeywordIndexPath())
	assert.Equal(t, filepath.Join("/var/lib/kestrel", "vectors.hnsw"), onDisk.VectorIndexPath())
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `
search:
  keyword_weight: 0.7
  vector_weight: 0.3
  rrf_constant: 30
  retriever_timeout: 500ms
  breaker_max_failures: 3
  breaker_reset_timeout: 10s
suggest:
  limit: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kestrel.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Search.KeywordWeight)
	assert.Equal(t, 0.3, cfg.Search.VectorWeight)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.RetrieverTimeoutDuration())
	assert.Equal(t, 5, cfg.Suggest.Limit)
	assert.Equal(t, 3, cfg.Search.BreakerMaxFailures)
	assert.Equal(t, 10*time.Second, cfg.Search.BreakerResetTimeoutDuration())
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 3, cfg.Expansion.MaxSynonymsPerTerm)
}

func TestLoadYmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kestrel.yml"),
		[]byte("search:\n  max_results: 25\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Search.MaxResults)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kestrel.yaml"),
		[]byte("search:\n  rrf_constant: 30\n"), 0o644))

	t.Setenv("KESTREL_RRF_CONSTANT", "90")
	t.Setenv("KESTREL_KEYWORD_WEIGHT", "0.25")
	t.Setenv("KESTREL_LICENSED", "false")
	t.Setenv("KESTREL_ANONYMIZE_HISTORY", "1")
	t.Setenv("KESTREL_LOG_LEVEL", "warn")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Search.RRFConstant)
	assert.Equal(t, 0.25, cfg.Search.KeywordWeight)
	assert.False(t, cfg.Expansion.Licensed)
	assert.True(t, cfg.History.Anonymize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverrideIgnoresInvalidValues(t *testing.T) {
	t.Setenv("KESTREL_RRF_CONSTANT", "not-a-number")
	t.Setenv("KESTREL_MAX_RESULTS", "-5")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 10, cfg.Search.MaxResults)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative keyword weight", func(c *Config) { c.Search.KeywordWeight = -0.5 }},
		{"both weights zero", func(c *Config) {
			c.Search.KeywordWeight = 0
			c.Search.VectorWeight = 0
		}},
		{"zero rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }},
		{"zero max results", func(c *Config) { c.Search.MaxResults = 0 }},
		{"bad timeout", func(c *Config) { c.Search.RetrieverTimeout = "soon" }},
		{"zero breaker failures", func(c *Config) { c.Search.BreakerMaxFailures = 0 }},
		{"bad breaker reset", func(c *Config) { c.Search.BreakerResetTimeout = "later" }},
		{"min weight above one", func(c *Config) { c.Expansion.MinWeight = 1.5 }},
		{"zero history ceiling", func(c *Config) { c.History.MaxEntries = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, kerrors.ErrCodeConfigInvalid, kerrors.GetCode(err))
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, kerrors.ErrCodeConfigNotFound, kerrors.GetCode(err))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".kestrel.yaml"),
		[]byte("search: [not, a, mapping\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, kerrors.ErrCodeConfigInvalid, kerrors.GetCode(err))
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := New()
	cfg.Search.MaxResults = 42
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.MaxResults)
}
