package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ocfl-archive/clerk-login/config"
	"github.com/ocfl-archive/clerk-login/internal/adapters/browser"
	"github.com/ocfl-archive/clerk-login/internal/adapters/devauth"
	"github.com/ocfl-archive/clerk-login/internal/adapters/memory"
	"github.com/ocfl-archive/clerk-login/internal/adapters/oidc"
	redisadapter "github.com/ocfl-archive/clerk-login/internal/adapters/redis"
	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// TokenStoreConfig contains configuration for the adapter's token store.
type TokenStoreConfig struct {
	Storage config.StorageConfig
	Logger  *slog.Logger

	// connect is swapped in tests.
	connect func(context.Context, RedisOptions) (redis.UniversalClient, error)
}

// BuildTokenStore creates the configured token store. The returned close func
// releases any connection it opened and is never nil.
func BuildTokenStore(ctx context.Context, cfg TokenStoreConfig) (ports.TokenStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Kind {
	case config.TokenStoreMemory, "":
		return memory.NewTokenStore(), noop, nil

	case config.TokenStoreRedis:
		connect := cfg.connect
		if connect == nil {
			connect = ConnectRedis
		}
		client, err := connect(ctx, RedisOptions{Config: cfg.Storage.Redis, Logger: cfg.Logger})
		if err != nil {
			return nil, noop, fmt.Errorf("connect token store: %w", err)
		}
		return redisadapter.NewTokenStoreWithPrefix(client, cfg.Storage.KeyPrefix), client.Close, nil

	default:
		return nil, noop, apperrors.Validationf("unsupported token store %q", cfg.Storage.Kind)
	}
}

// BuildOpener returns the browser opener for the interactive login. Prompts go to out.
func BuildOpener(login config.LoginConfig, out io.Writer, logger *slog.Logger) ports.BrowserOpener {
	if !login.OpenBrowser {
		return &browser.PromptOpener{Out: out, Logger: logger}
	}
	return browser.NewSystemOpener(out, logger)
}

// AdapterFactoryConfig contains configuration for BuildAdapterFactory.
type AdapterFactoryConfig struct {
	Auth   config.AuthConfig
	Store  ports.TokenStore    // Required in oauth mode
	Opener ports.BrowserOpener // Required in oauth mode
	Logger *slog.Logger
}

// BuildAdapterFactory returns the factory for the configured auth mode.
func BuildAdapterFactory(cfg AdapterFactoryConfig) (ports.AdapterFactory, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		dev := cfg.Auth.DevAuth
		return devauth.Factory(devauth.Config{
			UserID:          dev.UserID,
			Username:        dev.Username,
			Email:           dev.Email,
			FirstName:       dev.FirstName,
			LastName:        dev.LastName,
			Token:           dev.Token,
			SessionDuration: dev.SessionDuration,
		}, logger), nil

	case config.AuthModeOAuth, "":
		opts := oidc.Options{
			Store:        cfg.Store,
			Opener:       cfg.Opener,
			CallbackAddr: cfg.Auth.Login.CallbackAddr,
			CallbackPath: cfg.Auth.Login.CallbackPath,
			Logger:       logger,
		}
		return func(adapterCfg domainauth.AdapterConfig) (ports.AuthAdapter, error) {
			adapter, err := oidc.New(adapterCfg, opts)
			if err != nil {
				return nil, err
			}
			return adapter, nil
		}, nil

	default:
		return nil, apperrors.Validationf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}
