package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}

	ApplyDefaults(cfg)

	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.False(t, cfg.Auth.AllowBodyToken)
	require.NotNil(t, cfg.Realtime)
	assert.Equal(t, defaultSendBuffer, cfg.Realtime.SendBuffer)
	assert.Equal(t, defaultHandshakeTimeout, cfg.Realtime.HandshakeTimeout)
	assert.True(t, cfg.Realtime.Presence)
	assert.Empty(t, cfg.SecretKey.Access)
	assert.Empty(t, cfg.SecretKey.Refresh)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Auth:    &AuthConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: 4},
		Relay:   &RelayConfig{Provider: "redis", Channel: "custom"},
		Metrics: &MetricsConfig{Enabled: true},
	}

	ApplyDefaults(cfg)

	assert.Equal(t, time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, "custom", cfg.Relay.Channel)
	assert.Equal(t, defaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadWithEnv_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlBody := []byte(`
secretKey:
  access: from-file
  refresh: from-file
auth:
  accessTtl: 15m
realtime:
  allowedOrigins: []
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), yamlBody, 0o600))

	t.Setenv("SECRETKEY_ACCESS", "from-env")
	t.Setenv("AUTH_ACCESSTTL", "2m")
	t.Setenv("REALTIME_ALLOWEDORIGINS", "https://a.example,https://b.example")

	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, dir)
	require.NoError(t, err)

	cfg, err := LoadWithEnv[Config]("test", rel)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SecretKey.Access)
	assert.Equal(t, "from-file", cfg.SecretKey.Refresh)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, 2*time.Minute, cfg.Auth.AccessTTL)
	require.NotNil(t, cfg.Realtime)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Realtime.AllowedOrigins)
}

func TestLoadWithEnv_MissingFile(t *testing.T) {
	_, err := LoadWithEnv[Config]("does-not-exist", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
