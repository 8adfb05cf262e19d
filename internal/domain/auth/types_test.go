package auth

import (
	"testing"
	"time"
)

func TestDefaultAdapterConfig_Fixed(t *testing.T) {
	t.Setenv("KEYCLOAK_URL", "https://elsewhere.example.com")

	cfg := DefaultAdapterConfig()
	if cfg.URL != "https://auth.ub.unibas.ch" || cfg.Realm != "test" || cfg.ClientID != "graphql-demo" {
		t.Fatalf("unexpected adapter config: %+v", cfg)
	}
	if cfg != DefaultAdapterConfig() {
		t.Fatal("adapter config must not change between calls")
	}
}

func TestAdapterConfig_URLs(t *testing.T) {
	cfg := AdapterConfig{URL: "https://idp.example.com/", Realm: "demo", ClientID: "spa"}
	if got := cfg.Issuer(); got != "https://idp.example.com/realms/demo" {
		t.Fatalf("Issuer() = %q", got)
	}
	if got := cfg.AccountURL(); got != "https://idp.example.com/realms/demo/account" {
		t.Fatalf("AccountURL() = %q", got)
	}
	if got := cfg.SessionKey(); got != "https://idp.example.com/realms/demo#spa" {
		t.Fatalf("SessionKey() = %q", got)
	}
}

func TestBootstrapInitOptions(t *testing.T) {
	opts := BootstrapInitOptions()
	if opts.OnLoad != OnLoadLoginRequired {
		t.Fatalf("OnLoad = %q, want %q", opts.OnLoad, OnLoadLoginRequired)
	}
	if opts.CheckLoginIframe {
		t.Fatal("login iframe check must be disabled")
	}
}

func TestProfile_DisplayName(t *testing.T) {
	if got := (Profile{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}).DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("DisplayName() = %q", got)
	}
	if got := (Profile{Username: "ada"}).DisplayName(); got != "ada" {
		t.Fatalf("DisplayName() = %q", got)
	}
}

func TestTokenSet_Valid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		ts   TokenSet
		want bool
	}{
		{name: "empty", ts: TokenSet{}, want: false},
		{name: "no expiry", ts: TokenSet{AccessToken: "a"}, want: true},
		{name: "future expiry", ts: TokenSet{AccessToken: "a", Expiry: now.Add(time.Minute)}, want: true},
		{name: "expired", ts: TokenSet{AccessToken: "a", Expiry: now.Add(-time.Minute)}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ts.Valid(now); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
