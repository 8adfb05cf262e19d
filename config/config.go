package config

import (
	"log/slog"
	"strings"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication mode, dev identity and login listener
//   - storage.go: Token store and Redis configuration
//   - http.go: Session views configuration
//   - observability.go: Metrics configuration
//
// The adapter configuration (URL, realm, client) is deliberately absent:
// it is fixed, see Adapter.
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Authentication configuration
	Auth AuthConfig

	// Token store configuration
	Storage StorageConfig

	// Session views configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if _, ok := logLevels[c.LogLevel]; !ok {
		c.LogLevel = "info"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeOAuth
	}
	c.Auth.Login.Sanitize()
	c.Storage.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	if lvl, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Adapter returns the fixed adapter configuration. It never depends on the environment.
func (c *AppConfig) Adapter() domainauth.AdapterConfig {
	return domainauth.DefaultAdapterConfig()
}
