// Package config loads application configuration with viper, from an
// optional .env file overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// AuthMode represents the SSH authentication mode.
type AuthMode string

const (
	AuthModeAllowlist AuthMode = "allowlist"
	AuthModePublic    AuthMode = "public"
)

// Config holds all application configuration.
type Config struct {
	// SSH server settings
	SSHAddr        string   `mapstructure:"SSH_ADDR"`
	SSHHostKeyPath string   `mapstructure:"SSH_HOSTKEY_PATH"`
	SSHAuthMode    AuthMode `mapstructure:"SSH_AUTH_MODE"`
	AllowlistPath  string   `mapstructure:"SSH_ALLOWLIST_PATH"`

	// Commerce backend settings
	BackendBaseURL string `mapstructure:"BACKEND_BASE_URL"`
	SessionToken   string `mapstructure:"BACKEND_SESSION_TOKEN"`

	// Catalog cache settings
	CacheTTLSeconds int `mapstructure:"CACHE_TTL_SECONDS"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// CacheTTL returns the catalog cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load reads configuration from .env (when present) and the environment.
// Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	v.SetDefault("SSH_ADDR", ":23235")
	v.SetDefault("SSH_HOSTKEY_PATH", "./.ssh_host_ed25519_key")
	v.SetDefault("SSH_AUTH_MODE", string(AuthModeAllowlist))
	v.SetDefault("SSH_ALLOWLIST_PATH", "./allowlist_authorized_keys")
	v.SetDefault("BACKEND_BASE_URL", "http://127.0.0.1:18090")
	v.SetDefault("BACKEND_SESSION_TOKEN", "")
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	// A missing .env is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.SSHAuthMode != AuthModeAllowlist && cfg.SSHAuthMode != AuthModePublic {
		return nil, fmt.Errorf("SSH_AUTH_MODE must be %q or %q", AuthModeAllowlist, AuthModePublic)
	}
	if cfg.CacheTTLSeconds < 0 {
		return nil, errors.New("CACHE_TTL_SECONDS must not be negative")
	}

	return cfg, nil
}
