package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driftnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvSources, EnvDB, EnvAIHost, EnvAIModel, EnvAIToken} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, "driftnet.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.Ingest.Concurrency)
	assert.Equal(t, 100, cfg.Ingest.MaxItemsPerSource)
	assert.Equal(t, 168*time.Hour, cfg.Ingest.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Normalize.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Normalize.Delay)
	assert.Equal(t, 15, cfg.Links.ItemWorkers)
	assert.Equal(t, 20, cfg.Links.BatchWorkers)
	assert.Equal(t, 2*time.Second, cfg.Expand.Delay)
	assert.True(t, cfg.Expand.Enabled)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sources:
  - acme
  - "@bravo"
db_path: /var/lib/driftnet
ingest:
  concurrency: 3
  interval: 12h
expand:
  delay: 500ms
ai:
  host: http://gpu:8080
  model: llama3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "@bravo"}, cfg.Sources)
	assert.Equal(t, "/var/lib/driftnet", cfg.DBPath)
	assert.Equal(t, 3, cfg.Ingest.Concurrency)
	assert.Equal(t, 12*time.Hour, cfg.Ingest.Interval)
	assert.Equal(t, 100, cfg.Ingest.MaxItemsPerSource, "unset fields keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Expand.Delay)
	assert.True(t, cfg.Expand.Enabled)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, "http://gpu:8080/v1", cfg.ModelConfig().Host)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "ingest: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "ingest:\n  concurrency: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ingest.concurrency")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvSources: " acme, @bravo ,,charlie ",
		EnvDB:      "/tmp/db",
		EnvAIHost:  "https://api.openai.com/v1",
		EnvAIModel: "gpt-4o-mini",
		EnvAIToken: "sk-test",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	cfg.Sources = []string{"from-file"}
	cfg.ApplyEnv(lookup)

	assert.Equal(t, []string{"acme", "bravo", "charlie"}, cfg.Sources)
	assert.Equal(t, "/tmp/db", cfg.DBPath)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.Host)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "sk-test", cfg.AI.Token)
}

func TestApplyEnv_EmptyValuesKeepFile(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(key string) (string, bool) { return "", true })

	assert.Empty(t, cfg.Sources)
	assert.Equal(t, "driftnet.db", cfg.DBPath)
	assert.Equal(t, Default().AI, cfg.AI)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSources, "delta")
	t.Setenv(EnvDB, "/data/env.db")

	cfg, err := Load(writeConfig(t, "sources: [acme]\ndb_path: file.db\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"delta"}, cfg.Sources)
	assert.Equal(t, "/data/env.db", cfg.DBPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"missing db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"bad jitter", func(c *Config) { c.Fetch.Jitter = 1.5 }, "fetch.jitter"},
		{"no link workers", func(c *Config) { c.Links.ItemWorkers = 0 }, "links.item_workers"},
		{"negative normalize delay", func(c *Config) { c.Normalize.Delay = -time.Second }, "normalize.delay"},
		{"missing model", func(c *Config) { c.AI.Model = "" }, "Model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestSplitSources(t *testing.T) {
	assert.Nil(t, SplitSources(""))
	assert.Nil(t, SplitSources(" , ,"))
	assert.Equal(t, []string{"a", "b"}, SplitSources("@a,b"))
}
