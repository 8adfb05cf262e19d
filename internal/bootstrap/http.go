package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ocfl-archive/clerk-login/config"
	httpx "github.com/ocfl-archive/clerk-login/internal/http"
	"github.com/ocfl-archive/clerk-login/internal/session"
)

// HTTPServerConfig contains configuration for the session views server.
type HTTPServerConfig struct {
	HTTP    config.HTTPConfig
	Session *session.Context
	Logger  *slog.Logger

	// Listener overrides HTTP.Addr when set.
	Listener net.Listener
}

// ServeHTTP serves the session views until ctx is done, then shuts down gracefully
// within HTTP.ShutdownTimeout. It returns nil after a clean shutdown.
func ServeHTTP(ctx context.Context, cfg HTTPServerConfig) error {
	if cfg.Session == nil {
		return errors.New("session context is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ln := cfg.Listener
	if ln == nil {
		var lc net.ListenConfig
		var err error
		if ln, err = lc.Listen(ctx, "tcp", cfg.HTTP.Addr); err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
		}
	}

	// No WriteTimeout: the event stream is long-lived.
	server := &http.Server{
		Handler: httpx.NewRouter(httpx.RouterServices{
			Session: cfg.Session,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return ShutdownHTTPServer(ShutdownConfig{
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// The serving context is already done; shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
