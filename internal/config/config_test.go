package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/corrections.db", cfg.Database.Path)
	assert.Equal(t, "corrected", cfg.Storage.OutputDir)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "*.xml", cfg.Batch.Pattern)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
storage:
  output_dir: /tmp/out
batch:
  workers: 2
logger:
  level: debug
  format: console
`)
	t.Setenv("INVOICEFIX_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/out", cfg.Storage.OutputDir)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no database", func(c *Config) { c.Database.Path = "" }},
		{"no output dir", func(c *Config) { c.Storage.OutputDir = "" }},
		{"no upload size", func(c *Config) { c.Upload.MaxSizeBytes = 0 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
