package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ocfl-archive/clerk-login/config"
	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	"github.com/ocfl-archive/clerk-login/internal/ports"
	"github.com/ocfl-archive/clerk-login/internal/service"
	"github.com/ocfl-archive/clerk-login/internal/session"
)

// AppOptions configures NewApp.
type AppOptions struct {
	Config config.AppConfig
	Logger *slog.Logger
	// Out receives user-facing prompts such as the manual login URL.
	Out io.Writer

	// Factory replaces the factory derived from Config, for tests.
	Factory ports.AdapterFactory
}

// App holds the wired components of one process.
type App struct {
	Config    config.AppConfig
	Logger    *slog.Logger
	Session   *session.Context
	Bootstrap *service.AuthBootstrap

	factory ports.AdapterFactory
	closers []func() error
}

// NewApp wires token store, opener, adapter factory, metrics and the bootstrap.
// Close must be called even when a later step fails.
func NewApp(ctx context.Context, opts AppOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		Config:  opts.Config,
		Logger:  logger,
		Session: session.NewContext(),
	}

	factory := opts.Factory
	if factory == nil {
		store, closeStore, err := BuildTokenStore(ctx, TokenStoreConfig{Storage: opts.Config.Storage, Logger: logger})
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, closeStore)

		factory, err = BuildAdapterFactory(AdapterFactoryConfig{
			Auth:   opts.Config.Auth,
			Store:  store,
			Opener: BuildOpener(opts.Config.Auth.Login, opts.Out, logger),
			Logger: logger,
		})
		if err != nil {
			return app, err
		}
	}
	app.factory = factory

	sink, closeMetrics := BuildMetrics(opts.Config, logger)
	app.closers = append(app.closers, closeMetrics)

	bootstrap, err := BuildBootstrap(BootstrapDeps{
		Factory: factory,
		Writer:  app.Session,
		Metrics: sink,
		Logger:  logger,
	})
	if err != nil {
		return app, err
	}
	app.Bootstrap = bootstrap
	return app, nil
}

// Login runs the bootstrap once, bounded by the configured login timeout.
// The adapter is kept open and released by Close.
func (a *App) Login(ctx context.Context) service.BootstrapResult {
	if timeout := a.Config.Auth.Login.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res := a.Bootstrap.Run(ctx)
	if res.Adapter != nil {
		a.closers = append(a.closers, res.Adapter.Close)
	}
	return res
}

// Logout drops the stored session and returns the provider's end-session URL.
func (a *App) Logout(ctx context.Context) (string, error) {
	adapter, err := a.factory(domainauth.DefaultAdapterConfig())
	if err != nil {
		return "", fmt.Errorf("construct adapter: %w", err)
	}
	defer func() {
		if closeErr := adapter.Close(); closeErr != nil {
			a.Logger.Warn("failed to close adapter", "error", closeErr)
		}
	}()
	return adapter.Logout(ctx)
}

// Close releases everything the app opened, newest first.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
