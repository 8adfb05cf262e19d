// Package devauth provides a simple, config-driven AuthAdapter for local development.
package devauth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// Config controls the dev adapter identity.
// UserID and Email are required; Token is generated when empty.
type Config struct {
	UserID          string
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Token           string
	SessionDuration time.Duration // default 8h when zero
}

// Adapter implements ports.AuthAdapter without an identity provider.
// login-required logs the configured user in immediately; check-sso never finds a session.
type Adapter struct {
	cfg     domainauth.AdapterConfig
	profile domainauth.Profile
	token   string
	logger  *slog.Logger

	mu        sync.Mutex
	loggedIn  bool
	expiresAt time.Time
	duration  time.Duration
}

var _ ports.AuthAdapter = (*Adapter)(nil)

// New constructs a dev adapter bound to cfg.
func New(cfg domainauth.AdapterConfig, dev Config, logger *slog.Logger) (*Adapter, error) {
	if dev.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if dev.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	token := dev.Token
	if token == "" {
		token = "dev-" + uuid.NewString()
	}
	dur := dev.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	username := dev.Username
	if username == "" {
		username = dev.UserID
	}
	if logger == nil {
		logger = slog.Default()
	}

	enabled := true
	return &Adapter{
		cfg: cfg,
		profile: domainauth.Profile{
			ID:            dev.UserID,
			Username:      username,
			Email:         dev.Email,
			FirstName:     dev.FirstName,
			LastName:      dev.LastName,
			Enabled:       &enabled,
			EmailVerified: &enabled,
		},
		token:    token,
		logger:   logger.With("component", "dev_auth", "realm", cfg.Realm, "client_id", cfg.ClientID),
		duration: dur,
	}, nil
}

// Factory returns a ports.AdapterFactory building dev adapters from dev.
func Factory(dev Config, logger *slog.Logger) ports.AdapterFactory {
	return func(cfg domainauth.AdapterConfig) (ports.AuthAdapter, error) {
		adapter, err := New(cfg, dev, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}
}

func (a *Adapter) Init(ctx context.Context, opts domainauth.InitOptions) error {
	switch opts.OnLoad {
	case domainauth.OnLoadCheckSSO:
		return nil
	case domainauth.OnLoadLoginRequired, "":
	default:
		return apperrors.ValidationField("onLoad", fmt.Sprintf("unsupported onLoad %q", opts.OnLoad))
	}

	a.mu.Lock()
	a.loggedIn = true
	a.expiresAt = time.Now().Add(a.duration)
	a.mu.Unlock()

	a.logger.WarnContext(ctx, "dev auth active, skipping identity provider", "user_id", a.profile.ID)
	return nil
}

func (a *Adapter) LoadUserProfile(context.Context) (domainauth.Profile, error) {
	if !a.Authenticated() {
		return domainauth.Profile{}, apperrors.Unauthenticated("load user profile: not authenticated")
	}
	return a.profile, nil
}

func (a *Adapter) Token() string {
	if !a.Authenticated() {
		return ""
	}
	return a.token
}

// Authenticated reports whether the dev session is active and not expired.
func (a *Adapter) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn && time.Now().Before(a.expiresAt)
}

func (a *Adapter) Logout(context.Context) (string, error) {
	a.mu.Lock()
	a.loggedIn = false
	a.mu.Unlock()
	return "", nil
}

func (a *Adapter) Close() error { return nil }
