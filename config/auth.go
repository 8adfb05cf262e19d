package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses the Keycloak realm over OAuth/OIDC.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID          string        `env:"USER_ID"          envDefault:"dev-user"`
	Username        string        `env:"USERNAME"`
	Email           string        `env:"EMAIL"            envDefault:"dev@example.com"`
	FirstName       string        `env:"FIRST_NAME"       envDefault:"Dev"`
	LastName        string        `env:"LAST_NAME"        envDefault:"User"`
	Token           string        `env:"TOKEN"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
}

// LoginConfig controls the interactive login on this machine.
// The realm, client and init options are fixed and not configurable here.
type LoginConfig struct {
	// CallbackAddr is the loopback listener receiving the authorization redirect.
	CallbackAddr string `env:"CALLBACK_ADDR" envDefault:"127.0.0.1:0"`
	CallbackPath string `env:"CALLBACK_PATH" envDefault:"/callback"`
	// OpenBrowser launches the system browser; when false the login URL is only logged.
	OpenBrowser bool `env:"OPEN_BROWSER" envDefault:"true"`
	// Timeout bounds the whole bootstrap. Zero waits until interrupted.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s"`
}

// Sanitize applies guardrails to login configuration values.
func (c *LoginConfig) Sanitize() {
	c.CallbackAddr = strings.TrimSpace(c.CallbackAddr)
	if c.CallbackAddr == "" {
		c.CallbackAddr = "127.0.0.1:0"
	}
	c.CallbackPath = strings.TrimSpace(c.CallbackPath)
	if c.CallbackPath == "" {
		c.CallbackPath = "/callback"
	}
	if !strings.HasPrefix(c.CallbackPath, "/") {
		c.CallbackPath = "/" + c.CallbackPath
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which adapter the bootstrap constructs.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Login configuration (used when Mode=oauth).
	Login LoginConfig `envPrefix:"LOGIN_"`
}
