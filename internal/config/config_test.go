package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queue:
  prefix: jobs
  default_lock: 90s
worker:
  concurrency: 8
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jobs", cfg.Queue.Prefix)
	assert.Equal(t, "default", cfg.Queue.Name)
	assert.Equal(t, 90*time.Second, cfg.Queue.DefaultLock)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 100, cfg.Queue.SweepBatch)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/relayq")
	t.Setenv("RELAYQ_PREFIX", "staging")
	t.Setenv("RELAYQ_QUEUE", "emails")
	t.Setenv("RELAYQ_CONCURRENCY", "4")
	t.Setenv("RELAYQ_LOG_FORMAT", "text")
	t.Setenv("RELAYQ_METRICS_ADDR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
	assert.Equal(t, "postgres://u:p@db/relayq", cfg.Database.URL)
	assert.Equal(t, "staging", cfg.Queue.Prefix)
	assert.Equal(t, "emails", cfg.Queue.Name)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Addr, "set-but-empty disables the endpoint")
}

func TestEnvConcurrencyMustBeNumeric(t *testing.T) {
	t.Setenv("RELAYQ_CONCURRENCY", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty prefix", func(c *Config) { c.Queue.Prefix = "" }},
		{"empty queue", func(c *Config) { c.Queue.Name = "" }},
		{"zero lock", func(c *Config) { c.Queue.DefaultLock = 0 }},
		{"zero sweep", func(c *Config) { c.Queue.SweepBatch = 0 }},
		{"zero concurrency", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"zero idle", func(c *Config) { c.Scheduler.Idle = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
