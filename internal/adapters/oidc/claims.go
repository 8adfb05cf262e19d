package oidc

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

type accessTokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string                 `json:"preferred_username"`
	Email             string                 `json:"email,omitempty"`
	Name              string                 `json:"name,omitempty"`
	AuthorizedParty   string                 `json:"azp,omitempty"`
	SessionState      string                 `json:"session_state,omitempty"`
	Groups            []string               `json:"groups,omitempty"`
	RealmAccess       domainauth.RealmAccess `json:"realm_access,omitempty"`
}

// ParseAccessToken decodes the claims of a JWT access token without verifying it.
// The token came from the provider over TLS; the result is for display and expiry only.
func ParseAccessToken(raw string) (domainauth.TokenClaims, error) {
	if raw == "" {
		return domainauth.TokenClaims{}, errors.New("empty access token")
	}

	var c accessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return domainauth.TokenClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	out := domainauth.TokenClaims{
		Subject:           c.Subject,
		PreferredUsername: c.PreferredUsername,
		Email:             c.Email,
		Name:              c.Name,
		AuthorizedParty:   c.AuthorizedParty,
		SessionState:      c.SessionState,
		Groups:            c.Groups,
		RealmAccess:       c.RealmAccess,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}
