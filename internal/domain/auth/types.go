package auth

// Package auth contains domain-level types for the login bootstrap.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

const (
	defaultAdapterURL      = "https://auth.ub.unibas.ch"
	defaultAdapterRealm    = "test"
	defaultAdapterClientID = "graphql-demo"
)

// AdapterConfig is the immutable triple an adapter is bound to at construction.
type AdapterConfig struct {
	URL      string // identity provider base URL
	Realm    string
	ClientID string
}

// DefaultAdapterConfig returns the fixed adapter configuration used by the bootstrap.
// It is intentionally not read from the environment.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		URL:      defaultAdapterURL,
		Realm:    defaultAdapterRealm,
		ClientID: defaultAdapterClientID,
	}
}

// Issuer returns the realm issuer URL, e.g. https://idp.example.com/realms/demo.
func (c AdapterConfig) Issuer() string {
	return strings.TrimSuffix(c.URL, "/") + "/realms/" + c.Realm
}

// AccountURL returns the realm account endpoint serving the user profile.
func (c AdapterConfig) AccountURL() string {
	return c.Issuer() + "/account"
}

// SessionKey identifies stored sessions for this realm and client.
func (c AdapterConfig) SessionKey() string {
	return c.Issuer() + "#" + c.ClientID
}

// OnLoad selects what Init does when no session exists.
type OnLoad string

const (
	// OnLoadLoginRequired forces an interactive login when no session exists.
	OnLoadLoginRequired OnLoad = "login-required"
	// OnLoadCheckSSO only picks up an existing session and stays unauthenticated otherwise.
	OnLoadCheckSSO OnLoad = "check-sso"
)

// DefaultCheckLoginIframeInterval is the session check period when enabled.
const DefaultCheckLoginIframeInterval = 5 * time.Second

// InitOptions are passed to AuthAdapter.Init.
type InitOptions struct {
	OnLoad OnLoad
	// CheckLoginIframe enables the periodic silent session check.
	CheckLoginIframe         bool
	CheckLoginIframeInterval time.Duration
}

// BootstrapInitOptions returns the options the login bootstrap always uses.
func BootstrapInitOptions() InitOptions {
	return InitOptions{
		OnLoad:           OnLoadLoginRequired,
		CheckLoginIframe: false,
	}
}

// Profile is the authenticated principal as returned by the account endpoint.
// Fields are owned by the identity provider and passed through verbatim.
type Profile struct {
	ID               string              `json:"id,omitempty"`
	Username         string              `json:"username,omitempty"`
	Email            string              `json:"email,omitempty"`
	FirstName        string              `json:"firstName,omitempty"`
	LastName         string              `json:"lastName,omitempty"`
	Enabled          *bool               `json:"enabled,omitempty"`
	EmailVerified    *bool               `json:"emailVerified,omitempty"`
	TOTP             *bool               `json:"totp,omitempty"`
	CreatedTimestamp int64               `json:"createdTimestamp,omitempty"`
	Attributes       map[string][]string `json:"attributes,omitempty"`
}

// DisplayName returns "First Last", falling back to the username.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	return p.Username
}

// TokenSet is the session an adapter keeps between runs.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Valid reports whether the access token is present and not expired at now.
func (t TokenSet) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return t.Expiry.IsZero() || now.Before(t.Expiry)
}

// RealmAccess lists realm-level roles granted in an access token.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// TokenClaims is the unverified content of an access token.
type TokenClaims struct {
	Subject           string      `json:"sub"`
	PreferredUsername string      `json:"preferred_username"`
	Email             string      `json:"email,omitempty"`
	Name              string      `json:"name,omitempty"`
	AuthorizedParty   string      `json:"azp,omitempty"`
	SessionState      string      `json:"session_state,omitempty"`
	Groups            []string    `json:"groups,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access,omitempty"`
	IssuedAt          time.Time   `json:"-"`
	ExpiresAt         time.Time   `json:"-"`
}
