package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SMARTSHOP_CONFIG", "SMARTSHOP_ENV", "SMARTSHOP_PORT", "SMARTSHOP_DB_PATH",
		"SMARTSHOP_API_URL", "SMARTSHOP_ASSET_URL", "SMARTSHOP_SECRET", "SMARTSHOP_LOG_LEVEL",
		"SMARTSHOP_DEBOUNCE", "SMARTSHOP_API_TIMEOUT", "SMARTSHOP_SESSION_TTL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8001/api", cfg.APIURL)
	assert.Equal(t, "http://localhost:8001", cfg.AssetURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, devSecret, cfg.Secret)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "smartshop.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("port: \"9000\"\nlog_level: debug\ndebounce: 250ms\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SMARTSHOP_PORT=9100\nSMARTSHOP_DB_PATH=/tmp/dotenv.db\n"), 0o600))

	t.Setenv("SMARTSHOP_CONFIG", yamlPath)
	t.Setenv("SMARTSHOP_DB_PATH", "/tmp/env.db")

	cfg, err := Load(envPath)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, ".env beats yaml")
	assert.Equal(t, "/tmp/env.db", cfg.DBPath, "environment beats .env")
	assert.Equal(t, "debug", cfg.LogLevel, "yaml beats defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTSHOP_ENV", "production")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "SMARTSHOP_SECRET")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative api url", func(c *Config) { c.APIURL = "/api" }},
		{"bad port", func(c *Config) { c.Port = "http" }},
		{"zero debounce", func(c *Config) { c.Debounce = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Secret = "s"
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTSHOP_API_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "SMARTSHOP_API_TIMEOUT")
}
