package ports

// Package ports defines interfaces (hexagonal ports) for the login bootstrap.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

// AuthAdapter performs the OpenID Connect handshake with the identity provider.
type AuthAdapter interface {
	// Init restores an existing session or, depending on opts.OnLoad, runs an interactive login.
	Init(ctx context.Context, opts domainauth.InitOptions) error

	// LoadUserProfile fetches the authenticated user's profile.
	LoadUserProfile(ctx context.Context) (domainauth.Profile, error)

	// Token returns the current bearer token, or "" when not authenticated.
	Token() string

	Authenticated() bool

	// Logout drops the local session and returns the provider's end-session URL, if any.
	Logout(ctx context.Context) (string, error)

	Close() error
}

// AdapterFactory constructs an adapter bound to cfg.
type AdapterFactory func(cfg domainauth.AdapterConfig) (AuthAdapter, error)

// TokenStore is the adapter's own session storage.
type TokenStore interface {
	Load(ctx context.Context, key string) (domainauth.TokenSet, error)
	Save(ctx context.Context, key string, ts domainauth.TokenSet) error
	Delete(ctx context.Context, key string) error
}

// BrowserOpener sends the user agent to an external login page.
type BrowserOpener interface {
	Open(ctx context.Context, url string) error
}

// SessionWriter is the single write capability over the session state.
type SessionWriter interface {
	Publish(profile domainauth.Profile, token string)
}
