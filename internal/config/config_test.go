package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "bolt://localhost:7687", cfg.Connection.Address())
	assert.True(t, cfg.Connection.Encrypted)
	assert.Equal(t, 10*time.Second, cfg.Diagnostics.ProbeTimeout)
	assert.Equal(t, "halin.diagnostics", cfg.Publish.Subject)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Connection.Host)
	assert.Equal(t, 7687, cfg.Connection.Port)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 60, cfg.Poll.HistorySize)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halin.yaml")
	yaml := `
connection:
  host: core1.example.com
  port: 7688
  username: admin
diagnostics:
  probe_timeout: 3s
publish:
  type: nats
  url: nats://localhost:4222
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("HALIN_CONNECTION_PASSWORD", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "core1.example.com", cfg.Connection.Host)
	assert.Equal(t, 7688, cfg.Connection.Port)
	assert.Equal(t, "admin", cfg.Connection.Username)
	assert.Equal(t, "secret", cfg.Connection.Password)
	assert.Equal(t, 3*time.Second, cfg.Diagnostics.ProbeTimeout)
	assert.Equal(t, "nats", cfg.Publish.Type)
	assert.Equal(t, "halin.diagnostics", cfg.Publish.Subject)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  port: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty host", func(c *Config) { c.Connection.Host = "" }, "host is required"},
		{"bad port", func(c *Config) { c.Connection.Port = 70000 }, "port must be between"},
		{"zero probe timeout", func(c *Config) { c.Diagnostics.ProbeTimeout = 0 }, "probe_timeout"},
		{"fast poll", func(c *Config) { c.Poll.Interval = 100 * time.Millisecond }, "at least 1s"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"nats without url", func(c *Config) { c.Publish.Type = "nats" }, "url is required"},
		{"kafka without brokers", func(c *Config) { c.Publish.Type = "kafka" }, "kafka_brokers"},
		{"unknown publisher", func(c *Config) { c.Publish.Type = "sqs" }, "unsupported publish type"},
		{"bad http port", func(c *Config) { c.Connection.HTTPPort = -1 }, "http_port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnection_SeedAddresses(t *testing.T) {
	c := DefaultConfig().Connection
	assert.Equal(t, []string{"bolt://localhost:7687", "http://localhost:7474", "https://localhost:7473"}, c.SeedAddresses())

	c.HTTPSPort = 0
	assert.Equal(t, []string{"bolt://localhost:7687", "http://localhost:7474"}, c.SeedAddresses())

	c.HTTPPort = 0
	assert.Equal(t, []string{"bolt://localhost:7687"}, c.SeedAddresses())
}
