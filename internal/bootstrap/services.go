package bootstrap

import (
	"errors"
	"log/slog"

	"github.com/ocfl-archive/clerk-login/config"
	"github.com/ocfl-archive/clerk-login/internal/observability/statsd"
	"github.com/ocfl-archive/clerk-login/internal/ports"
	"github.com/ocfl-archive/clerk-login/internal/service"
)

// BuildMetrics configures the StatsD sink. A nil sink is returned when metrics
// are disabled or the endpoint cannot be dialed; the bootstrap works without one.
//
//nolint:ireturn // callers only need the Sink behaviour.
func BuildMetrics(cfg config.AppConfig, logger *slog.Logger) (statsd.Sink, func() error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil, noop
	}

	client, err := statsd.Dial(statsd.Options{
		Address:  cfg.Observability.Metrics.StatsdAddress,
		Prefix:   cfg.Observability.Metrics.Prefix,
		AuthMode: string(cfg.Auth.Mode),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil, noop
	}
	return client, client.Close
}

// BootstrapDeps are the collaborators of the authentication bootstrap.
type BootstrapDeps struct {
	Factory ports.AdapterFactory
	Writer  ports.SessionWriter
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// BuildBootstrap creates the authentication bootstrap service.
func BuildBootstrap(deps BootstrapDeps) (*service.AuthBootstrap, error) {
	if deps.Factory == nil {
		return nil, errors.New("adapter factory is required")
	}
	return service.NewAuthBootstrap(service.AuthBootstrapOptions{
		Factory: deps.Factory,
		Writer:  deps.Writer,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
}
