package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeOAuth {
		t.Fatalf("Auth.Mode = %q, want oauth", cfg.Auth.Mode)
	}
	if cfg.Storage.Kind != TokenStoreMemory {
		t.Fatalf("Storage.Kind = %q, want memory", cfg.Storage.Kind)
	}
	if cfg.Auth.Login.Timeout != 0 {
		t.Fatalf("Login.Timeout = %v, want no timeout", cfg.Auth.Login.Timeout)
	}
	if !cfg.Auth.Login.OpenBrowser {
		t.Fatal("Login.OpenBrowser should default to true")
	}
	if cfg.HTTP.Addr != "127.0.0.1:8080" {
		t.Fatalf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("SlogLevel() = %v", cfg.SlogLevel())
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "MOCK")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_USERNAME", "dev")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_FIRST_NAME", "Dev")
	t.Setenv("DEV_AUTH_LAST_NAME", "Eloper")
	t.Setenv("DEV_AUTH_TOKEN", "static-token")
	t.Setenv("DEV_AUTH_SESSION_DURATION", "1h")
	t.Setenv("LOGIN_CALLBACK_ADDR", "127.0.0.1:8765")
	t.Setenv("LOGIN_CALLBACK_PATH", "/cb")
	t.Setenv("LOGIN_OPEN_BROWSER", "false")
	t.Setenv("LOGIN_TIMEOUT", "2m")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeMock,
		DevAuth: DevAuthConfig{
			UserID:          "dev-user",
			Username:        "dev",
			Email:           "dev@example.com",
			FirstName:       "Dev",
			LastName:        "Eloper",
			Token:           "static-token",
			SessionDuration: time.Hour,
		},
		Login: LoginConfig{
			CallbackAddr: "127.0.0.1:8765",
			CallbackPath: "/cb",
			OpenBrowser:  false,
			Timeout:      2 * time.Minute,
		},
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	for _, tc := range []struct{ key, value string }{
		{"AUTH_MODE", "saml"},
		{"TOKEN_STORE", "etcd"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			var cfg AppConfig
			if err := env.Parse(&cfg); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestAppConfig_AdapterIsFixed(t *testing.T) {
	t.Setenv("KEYCLOAK_URL", "https://elsewhere.example.com")
	t.Setenv("KEYCLOAK_REALM", "prod")
	t.Setenv("KEYCLOAK_CLIENT_ID", "other")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if got := cfg.Adapter(); got != domainauth.DefaultAdapterConfig() {
		t.Fatalf("Adapter() = %+v, want fixed default", got)
	}
}

func TestAppConfig_ParseStorageEnv(t *testing.T) {
	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("REDIS_URI", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_USE_SENTINEL", "true")
	t.Setenv("REDIS_SENTINEL_NODES", "s1:26379,s2:26379")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Storage.Kind != TokenStoreRedis {
		t.Fatalf("Storage.Kind = %q", cfg.Storage.Kind)
	}
	if cfg.Storage.Redis.URI != "redis.internal:6380" || cfg.Storage.Redis.DB != 3 {
		t.Fatalf("unexpected redis config: %+v", cfg.Storage.Redis)
	}
	if !reflect.DeepEqual(cfg.Storage.Redis.SentinelNodes, []string{"s1:26379", "s2:26379"}) {
		t.Fatalf("SentinelNodes = %v", cfg.Storage.Redis.SentinelNodes)
	}
}

func TestLoginConfig_Sanitize(t *testing.T) {
	c := LoginConfig{CallbackAddr: " ", CallbackPath: "cb", Timeout: -time.Second}
	c.Sanitize()

	if c.CallbackAddr != "127.0.0.1:0" {
		t.Fatalf("CallbackAddr = %q", c.CallbackAddr)
	}
	if c.CallbackPath != "/cb" {
		t.Fatalf("CallbackPath = %q", c.CallbackPath)
	}
	if c.Timeout != 0 {
		t.Fatalf("Timeout = %v", c.Timeout)
	}
}

func TestAppConfig_SanitizeLogLevel(t *testing.T) {
	cfg := AppConfig{LogLevel: " DEBUG "}
	cfg.Sanitize()
	if cfg.LogLevel != "debug" || cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}

	cfg = AppConfig{LogLevel: "verbose"}
	cfg.Sanitize()
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info fallback", cfg.LogLevel)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name        string
		input       ObservabilityMetricsConfig
		wantEnabled bool
		wantPrefix  string
	}{
		{
			name:        "enabled with address",
			input:       ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " 127.0.0.1:8125 "},
			wantEnabled: true,
			wantPrefix:  "clerk_login",
		},
		{
			name:        "disabled when address empty",
			input:       ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  "},
			wantEnabled: false,
			wantPrefix:  "clerk_login",
		},
		{
			name:        "custom prefix",
			input:       ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "statsd:8125", Prefix: "ub.auth"},
			wantEnabled: true,
			wantPrefix:  "ub.auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			cfg.Sanitize()
			if cfg.IsEnabled() != tt.wantEnabled {
				t.Fatalf("IsEnabled() = %v, want %v", cfg.IsEnabled(), tt.wantEnabled)
			}
			if cfg.Prefix != tt.wantPrefix {
				t.Fatalf("Prefix = %q, want %q", cfg.Prefix, tt.wantPrefix)
			}
		})
	}
}
