package config

import (
	"strings"
	"time"
)

// HTTPConfig contains configuration for the local session views.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to. Loopback by default:
	// the views expose the bearer token.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// ShutdownTimeout bounds graceful shutdown of the views.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr = strings.TrimSpace(h.Addr); h.Addr == "" {
		h.Addr = "127.0.0.1:8080"
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 5 * time.Second
	}
}
