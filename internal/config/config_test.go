package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":23235", cfg.SSHAddr)
	assert.Equal(t, AuthModeAllowlist, cfg.SSHAuthMode)
	assert.Equal(t, "http://127.0.0.1:18090", cfg.BackendBaseURL)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "https://shop.example.com/api")
	t.Setenv("CACHE_TTL_SECONDS", "5")
	t.Setenv("SSH_AUTH_MODE", "public")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.BackendBaseURL)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL())
	assert.Equal(t, AuthModePublic, cfg.SSHAuthMode)
}

func TestLoadRejectsBadAuthMode(t *testing.T) {
	t.Setenv("SSH_AUTH_MODE", "open-sesame")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH_AUTH_MODE")
}
