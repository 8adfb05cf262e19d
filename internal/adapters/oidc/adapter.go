package oidc

// Package oidc provides the Keycloak-flavoured OpenID Connect adapter used by the login bootstrap.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

const (
	defaultCallbackAddr = "127.0.0.1:0"
	defaultCallbackPath = "/callback"
	maxProfileBytes     = 1 << 20
)

// Options carries the adapter's collaborators. Store and Opener are required.
type Options struct {
	Store        ports.TokenStore
	Opener       ports.BrowserOpener
	CallbackAddr string       // loopback listener for the redirect, defaults to 127.0.0.1:0
	CallbackPath string       // defaults to /callback
	Scopes       []string     // defaults to openid profile email
	HTTPClient   *http.Client // optional, defaults to a client with a 30s timeout
	Logger       *slog.Logger
	Now          func() time.Time
}

// Adapter implements ports.AuthAdapter against a Keycloak realm.
// Construction does no network I/O; discovery happens in Init.
type Adapter struct {
	cfg          domainauth.AdapterConfig
	store        ports.TokenStore
	opener       ports.BrowserOpener
	callbackAddr string
	callbackPath string
	scopes       []string
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.RWMutex
	provider    *gooidc.Provider
	verifier    *gooidc.IDTokenVerifier
	initialized bool
	session     domainauth.TokenSet
	profile     *domainauth.Profile

	stopCheck context.CancelFunc
	checkWG   sync.WaitGroup
}

var _ ports.AuthAdapter = (*Adapter)(nil)

// New validates cfg and returns an uninitialized adapter.
func New(cfg domainauth.AdapterConfig, opts Options) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, errors.New("token store is required")
	}
	if opts.Opener == nil {
		return nil, errors.New("browser opener is required")
	}

	a := &Adapter{
		cfg:          cfg,
		store:        opts.Store,
		opener:       opts.Opener,
		callbackAddr: opts.CallbackAddr,
		callbackPath: opts.CallbackPath,
		scopes:       opts.Scopes,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if a.callbackAddr == "" {
		a.callbackAddr = defaultCallbackAddr
	}
	if a.callbackPath == "" {
		a.callbackPath = defaultCallbackPath
	}
	if !strings.HasPrefix(a.callbackPath, "/") {
		a.callbackPath = "/" + a.callbackPath
	}
	if len(a.scopes) == 0 {
		a.scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.logger = a.logger.With("component", "oidc_adapter", "realm", cfg.Realm, "client_id", cfg.ClientID)
	return a, nil
}

func validateConfig(cfg domainauth.AdapterConfig) error {
	if cfg.URL == "" {
		return apperrors.ValidationField("url", "adapter URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.ValidationField("url", fmt.Sprintf("adapter URL %q is not absolute", cfg.URL))
	}
	if cfg.Realm == "" {
		return apperrors.ValidationField("realm", "realm is required")
	}
	if cfg.ClientID == "" {
		return apperrors.ValidationField("client_id", "client ID is required")
	}
	return nil
}

// Init restores a stored session or, for login-required, runs the interactive login.
// With check-sso and no session the adapter stays unauthenticated and Init returns nil.
func (a *Adapter) Init(ctx context.Context, opts domainauth.InitOptions) error {
	switch opts.OnLoad {
	case domainauth.OnLoadLoginRequired, domainauth.OnLoadCheckSSO, "":
	default:
		return apperrors.ValidationField("onLoad", fmt.Sprintf("unsupported onLoad %q", opts.OnLoad))
	}

	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return errors.New("adapter already initialized")
	}
	a.initialized = true
	a.mu.Unlock()

	if err := a.ensureProvider(ctx); err != nil {
		return err
	}

	ts, ok, err := a.restoreSession(ctx)
	if err != nil {
		return err
	}
	if !ok && opts.OnLoad == domainauth.OnLoadLoginRequired {
		ts, err = a.login(ctx)
		if err != nil {
			return err
		}
		if saveErr := a.store.Save(ctx, a.cfg.SessionKey(), ts); saveErr != nil {
			return fmt.Errorf("save session: %w", saveErr)
		}
		ok = true
	}
	if !ok {
		a.logger.InfoContext(ctx, "no existing session", "on_load", string(opts.OnLoad))
		return nil
	}

	a.mu.Lock()
	a.session = ts
	a.mu.Unlock()

	if opts.CheckLoginIframe {
		interval := opts.CheckLoginIframeInterval
		if interval <= 0 {
			interval = domainauth.DefaultCheckLoginIframeInterval
		}
		a.startSessionCheck(ctx, interval)
	}
	return nil
}

func (a *Adapter) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *Adapter) ensureProvider(ctx context.Context) error {
	a.mu.RLock()
	ready := a.provider != nil
	a.mu.RUnlock()
	if ready {
		return nil
	}

	op, err := gooidc.NewProvider(a.clientContext(ctx), a.cfg.Issuer())
	if err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}
	verifier := op.Verifier(&gooidc.Config{ClientID: a.cfg.ClientID, Now: a.now})

	a.mu.Lock()
	a.provider = op
	a.verifier = verifier
	a.mu.Unlock()
	return nil
}

// restoreSession returns a stored, still valid session. Expired or unverifiable
// sessions are deleted and reported as absent.
func (a *Adapter) restoreSession(ctx context.Context) (domainauth.TokenSet, bool, error) {
	key := a.cfg.SessionKey()
	ts, err := a.store.Load(ctx, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domainauth.TokenSet{}, false, nil
		}
		return domainauth.TokenSet{}, false, fmt.Errorf("load session: %w", err)
	}

	reason := ""
	switch {
	case !ts.Valid(a.now()):
		reason = "expired"
	case ts.IDToken != "":
		if _, verr := a.verifier.Verify(a.clientContext(ctx), ts.IDToken); verr != nil {
			reason = "id_token rejected: " + verr.Error()
		}
	}
	if reason != "" {
		a.logger.InfoContext(ctx, "discarding stored session", "reason", reason)
		if delErr := a.store.Delete(ctx, key); delErr != nil {
			return domainauth.TokenSet{}, false, fmt.Errorf("delete stale session: %w", delErr)
		}
		return domainauth.TokenSet{}, false, nil
	}

	a.logger.InfoContext(ctx, "restored existing session", "expires_at", ts.Expiry)
	return ts, true, nil
}

// LoadUserProfile fetches the account profile with the current bearer token.
func (a *Adapter) LoadUserProfile(ctx context.Context) (domainauth.Profile, error) {
	token := a.Token()
	if token == "" {
		return domainauth.Profile{}, apperrors.Unauthenticated("load user profile: not authenticated")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.AccountURL(), nil)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := oauth2.NewClient(a.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	resp, err := client.Do(req)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domainauth.Profile{}, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var profile domainauth.Profile
	if decErr := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&profile); decErr != nil {
		return domainauth.Profile{}, fmt.Errorf("decode profile: %w", decErr)
	}

	a.mu.Lock()
	a.profile = &profile
	a.mu.Unlock()
	return profile, nil
}

// Token returns the current access token.
func (a *Adapter) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.AccessToken
}

// Authenticated reports whether the adapter holds a session.
func (a *Adapter) Authenticated() bool {
	return a.Token() != ""
}

// Profile returns the last profile loaded, if any.
func (a *Adapter) Profile() (domainauth.Profile, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.profile == nil {
		return domainauth.Profile{}, false
	}
	return *a.profile, true
}

// Logout deletes the stored session and returns the provider's end-session URL.
// The URL is empty when the provider does not advertise one.
func (a *Adapter) Logout(ctx context.Context) (string, error) {
	a.stopSessionCheck()

	a.mu.RLock()
	idToken := a.session.IDToken
	a.mu.RUnlock()
	if idToken == "" {
		if ts, err := a.store.Load(ctx, a.cfg.SessionKey()); err == nil {
			idToken = ts.IDToken
		}
	}

	if err := a.store.Delete(ctx, a.cfg.SessionKey()); err != nil {
		return "", fmt.Errorf("delete session: %w", err)
	}
	a.clearSession()

	if err := a.ensureProvider(ctx); err != nil {
		return "", err
	}
	return a.endSessionURL(idToken)
}

func (a *Adapter) endSessionURL(idToken string) (string, error) {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	a.mu.RLock()
	op := a.provider
	a.mu.RUnlock()
	if err := op.Claims(&claims); err != nil {
		return "", fmt.Errorf("read discovery claims: %w", err)
	}
	if claims.EndSessionEndpoint == "" {
		return "", nil
	}

	u, err := url.Parse(claims.EndSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse end_session_endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client_id", a.cfg.ClientID)
	if idToken != "" {
		q.Set("id_token_hint", idToken)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) clearSession() {
	a.mu.Lock()
	a.session = domainauth.TokenSet{}
	a.profile = nil
	a.mu.Unlock()
}

// Close stops the session check, if running.
func (a *Adapter) Close() error {
	a.stopSessionCheck()
	return nil
}
