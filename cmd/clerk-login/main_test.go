package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocfl-archive/clerk-login/config"
	"github.com/ocfl-archive/clerk-login/internal/bootstrap"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	mockauth "github.com/ocfl-archive/clerk-login/internal/mocks/auth"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

func newTestCLI(t *testing.T, environment map[string]string, factory ports.AdapterFactory) (*cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	if environment == nil {
		environment = map[string]string{}
	}
	var out, errOut bytes.Buffer
	return &cli{
		out:    &out,
		errOut: &errOut,
		loadConfig: func() (config.AppConfig, error) {
			return bootstrap.ParseConfig(env.Options{Environment: environment})
		},
		factory: factory,
	}, &out, &errOut
}

func execute(c *cli, args ...string) error {
	root := newRootCmd(c)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestConfigCommand(t *testing.T) {
	c, out, _ := newTestCLI(t, map[string]string{"AUTH_MODE": "mock"}, nil)

	require.NoError(t, execute(c, "config"))
	got := out.String()
	assert.Contains(t, got, "https://auth.ub.unibas.ch")
	assert.Contains(t, got, "graphql-demo")
	assert.Contains(t, got, "https://auth.ub.unibas.ch/realms/test")
	assert.Contains(t, got, "mock")
}

func TestLoginCommand_DevMode(t *testing.T) {
	c, out, _ := newTestCLI(t, map[string]string{
		"AUTH_MODE":           "mock",
		"DEV_AUTH_USER_ID":    "ada",
		"DEV_AUTH_EMAIL":      "ada@example.com",
		"DEV_AUTH_FIRST_NAME": "Ada",
		"DEV_AUTH_LAST_NAME":  "Lovelace",
	}, nil)

	require.NoError(t, execute(c, "login"))
	assert.Equal(t, "Logged in as Ada Lovelace <ada@example.com>\n", out.String())
}

func TestLoginCommand_PrintToken(t *testing.T) {
	fake := mockauth.NewFakeAdapter()
	c, out, _ := newTestCLI(t, nil, fake.Factory(nil))

	require.NoError(t, execute(c, "login", "--print-token"))
	assert.Equal(t, "fake-access-token\n", out.String())
	assert.True(t, fake.Closed())
}

func TestLoginCommand_Failure(t *testing.T) {
	fake := mockauth.NewFakeAdapter()
	fake.InitErr = errors.New("login refused")
	c, out, errOut := newTestCLI(t, nil, fake.Factory(nil))

	err := execute(c, "login")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthBootstrap(err))
	assert.Empty(t, out.String())
	assert.Equal(t, 1, bytes.Count(errOut.Bytes(), []byte("failed to initialize adapter")))
}

func TestLogoutCommand(t *testing.T) {
	fake := mockauth.NewFakeAdapter()
	fake.LogoutURL = "https://auth.example.test/logout?client_id=spa"
	c, out, _ := newTestCLI(t, nil, fake.Factory(nil))

	require.NoError(t, execute(c, "logout"))
	assert.Contains(t, out.String(), fake.LogoutURL)

	fake.LogoutURL = ""
	out.Reset()
	require.NoError(t, execute(c, "logout"))
	assert.Equal(t, "Logged out.\n", out.String())
}

func TestLogLevelFlagOverridesEnv(t *testing.T) {
	c, _, _ := newTestCLI(t, map[string]string{"LOG_LEVEL": "error"}, nil)

	require.NoError(t, execute(c, "--log-level", "debug", "config"))
	assert.Equal(t, "debug", c.cfg.LogLevel)
	assert.True(t, c.logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestConfigLoadError(t *testing.T) {
	c, _, _ := newTestCLI(t, map[string]string{"AUTH_MODE": "saml"}, nil)
	err := execute(c, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestServeCommand_ExitOnFailure(t *testing.T) {
	fake := mockauth.NewFakeAdapter()
	fake.InitErr = errors.New("login refused")
	c, _, _ := newTestCLI(t, map[string]string{"HTTP_ADDR": "127.0.0.1:0"}, fake.Factory(nil))

	err := execute(c, "serve", "--exit-on-failure")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthBootstrap(err))
	assert.True(t, fake.Closed())
}
