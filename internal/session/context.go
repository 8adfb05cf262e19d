package session

import (
	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// Context is the login state owned by the application and passed to views by reference.
// Views read through ProfileView and TokenView; only the bootstrap writes, via Publish.
type Context struct {
	profile Store[domainauth.Profile]
	token   Store[string]
}

var _ ports.SessionWriter = (*Context)(nil)

// NewContext returns an unset session context.
func NewContext() *Context {
	return &Context{}
}

// ProfileView exposes the profile slot read-only.
func (c *Context) ProfileView() Observable[domainauth.Profile] { return &c.profile }

// TokenView exposes the bearer token slot read-only.
func (c *Context) TokenView() Observable[string] { return &c.token }

// Publish writes profile then token.
func (c *Context) Publish(profile domainauth.Profile, token string) {
	c.profile.Set(profile)
	c.token.Set(token)
}

// Snapshot is a point-in-time copy of both slots.
type Snapshot struct {
	Profile    domainauth.Profile
	HasProfile bool
	Token      string
	HasToken   bool
}

// Authenticated reports whether the bootstrap has published a session.
func (s Snapshot) Authenticated() bool { return s.HasProfile && s.HasToken }

// Snapshot reads both slots.
func (c *Context) Snapshot() Snapshot {
	var s Snapshot
	s.Profile, s.HasProfile = c.profile.Get()
	s.Token, s.HasToken = c.token.Get()
	return s
}
