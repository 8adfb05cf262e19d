package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

const fakeKeyID = "fake-idp-key"

// FakeIdP is a Keycloak-shaped identity provider for tests. It also plays the
// user's browser: Open completes the login and hits the adapter's callback.
type FakeIdP struct {
	Server   *httptest.Server
	Realm    string
	ClientID string
	Subject  string
	Profile  domainauth.Profile
	TokenTTL time.Duration

	key    *rsa.PrivateKey
	signer jose.Signer

	mu             sync.Mutex
	pending        map[string]pendingAuth
	issued         map[string]bool
	opens          int
	lastAuthParams url.Values
	loginError     string
	hangLogin      bool
	profileStatus  int
	userInfoStatus int
}

type pendingAuth struct {
	nonce       string
	challenge   string
	redirectURI string
}

// NewFakeIdP starts a fake provider serving realm for clientID.
func NewFakeIdP(t interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}, realm, clientID string,
) *FakeIdP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: key, KeyID: fakeKeyID, Algorithm: string(jose.RS256)}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	f := &FakeIdP{
		Realm:    realm,
		ClientID: clientID,
		Subject:  "user-1",
		Profile: domainauth.Profile{
			ID:        "user-1",
			Username:  "ada",
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		TokenTTL: 5 * time.Minute,
		key:      key,
		signer:   signer,
		pending:  make(map[string]pendingAuth),
		issued:   make(map[string]bool),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns the adapter triple pointing at this provider.
func (f *FakeIdP) Config() domainauth.AdapterConfig {
	return domainauth.AdapterConfig{URL: f.Server.URL, Realm: f.Realm, ClientID: f.ClientID}
}

// Issuer returns the realm issuer URL.
func (f *FakeIdP) Issuer() string { return f.Config().Issuer() }

// EndSessionURL is the advertised end_session_endpoint.
func (f *FakeIdP) EndSessionURL() string {
	return f.Issuer() + "/protocol/openid-connect/logout"
}

// FailLogin makes the next logins redirect back with the given OAuth error code.
func (f *FakeIdP) FailLogin(code string) {
	f.mu.Lock()
	f.loginError = code
	f.mu.Unlock()
}

// HangLogin makes Open succeed without ever calling back.
func (f *FakeIdP) HangLogin() {
	f.mu.Lock()
	f.hangLogin = true
	f.mu.Unlock()
}

// SetProfileStatus forces the account endpoint to answer with status.
func (f *FakeIdP) SetProfileStatus(status int) {
	f.mu.Lock()
	f.profileStatus = status
	f.mu.Unlock()
}

// RevokeSessions makes the userinfo endpoint reject every token.
func (f *FakeIdP) RevokeSessions() {
	f.mu.Lock()
	f.userInfoStatus = http.StatusUnauthorized
	f.mu.Unlock()
}

// Opens returns how many times the login page was opened.
func (f *FakeIdP) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// LastAuthParams returns the query of the last authorization request.
func (f *FakeIdP) LastAuthParams() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuthParams
}

// Open plays the user agent: it validates the authorization request and
// follows the redirect back to the caller's callback.
func (f *FakeIdP) Open(ctx context.Context, authURL string) error {
	f.mu.Lock()
	f.opens++
	hang := f.hangLogin
	f.mu.Unlock()

	callback, err := f.authorize(authURL)
	if err != nil {
		return err
	}
	if hang {
		return nil
	}

	go func() {
		req, reqErr := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, callback, nil)
		if reqErr != nil {
			return
		}
		resp, doErr := http.DefaultClient.Do(req)
		if doErr == nil {
			_ = resp.Body.Close()
		}
	}()
	return nil
}

func (f *FakeIdP) authorize(authURL string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(authURL, f.Issuer()+"/protocol/openid-connect/auth") {
		return "", fmt.Errorf("unexpected authorization endpoint %s", u.Path)
	}
	q := u.Query()
	if q.Get("client_id") != f.ClientID {
		return "", fmt.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" || q.Get("code_challenge_method") != "S256" {
		return "", errors.New("authorization request is not a PKCE code request")
	}

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		return "", err
	}
	back := redirect.Query()
	back.Set("state", q.Get("state"))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuthParams = q
	if f.loginError != "" {
		back.Set("error", f.loginError)
		back.Set("error_description", "login refused")
	} else {
		code := randomToken()
		f.pending[code] = pendingAuth{
			nonce:       q.Get("nonce"),
			challenge:   q.Get("code_challenge"),
			redirectURI: q.Get("redirect_uri"),
		}
		back.Set("code", code)
	}
	redirect.RawQuery = back.Encode()
	return redirect.String(), nil
}

// SignIDToken issues an id_token for the fake subject.
func (f *FakeIdP) SignIDToken(nonce string, expiry time.Time) string {
	claims := map[string]any{
		"iss":   f.Issuer(),
		"sub":   f.Subject,
		"aud":   f.ClientID,
		"azp":   f.ClientID,
		"iat":   time.Now().Unix(),
		"exp":   expiry.Unix(),
		"nonce": nonce,
	}
	return f.sign(claims)
}

// SignAccessToken issues an access token the provider will accept.
func (f *FakeIdP) SignAccessToken(expiry time.Time) string {
	claims := map[string]any{
		"iss":                f.Issuer(),
		"sub":                f.Subject,
		"azp":                f.ClientID,
		"iat":                time.Now().Unix(),
		"exp":                expiry.Unix(),
		"jti":                randomToken(),
		"preferred_username": f.Profile.Username,
		"email":              f.Profile.Email,
		"realm_access":       map[string]any{"roles": []string{"user"}},
	}
	tok := f.sign(claims)
	f.mu.Lock()
	f.issued[tok] = true
	f.mu.Unlock()
	return tok
}

func (f *FakeIdP) sign(claims map[string]any) string {
	payload, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	obj, err := f.signer.Sign(payload)
	if err != nil {
		panic(err)
	}
	raw, err := obj.CompactSerialize()
	if err != nil {
		panic(err)
	}
	return raw
}

func (f *FakeIdP) routes() http.Handler {
	base := "/realms/" + f.Realm
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/.well-known/openid-configuration", f.handleDiscovery)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/certs", f.handleJWKS)
	mux.HandleFunc("POST "+base+"/protocol/openid-connect/token", f.handleToken)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/userinfo", f.handleUserInfo)
	mux.HandleFunc("GET "+base+"/account", f.handleAccount)
	return mux
}

func (f *FakeIdP) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	iss := f.Issuer()
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                iss,
		"authorization_endpoint":                iss + "/protocol/openid-connect/auth",
		"token_endpoint":                        iss + "/protocol/openid-connect/token",
		"userinfo_endpoint":                     iss + "/protocol/openid-connect/userinfo",
		"jwks_uri":                              iss + "/protocol/openid-connect/certs",
		"end_session_endpoint":                  f.EndSessionURL(),
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
	})
}

func (f *FakeIdP) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &f.key.PublicKey,
		KeyID:     fakeKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (f *FakeIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	code := r.PostForm.Get("code")
	f.mu.Lock()
	p, ok := f.pending[code]
	delete(f.pending, code)
	f.mu.Unlock()

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	switch {
	case !ok:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	case base64.RawURLEncoding.EncodeToString(sum[:]) != p.challenge:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "PKCE verification failed"})
		return
	case r.PostForm.Get("redirect_uri") != p.redirectURI:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "redirect_uri mismatch"})
		return
	}

	expiry := time.Now().Add(f.TokenTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  f.SignAccessToken(expiry),
		"token_type":    "Bearer",
		"expires_in":    int(f.TokenTTL.Seconds()),
		"refresh_token": randomToken(),
		"id_token":      f.SignIDToken(p.nonce, expiry),
	})
}

func (f *FakeIdP) bearerAccepted(r *http.Request) bool {
	tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued[tok]
}

func (f *FakeIdP) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.userInfoStatus
	f.mu.Unlock()
	if status != 0 || !f.bearerAccepted(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sub": f.Subject})
}

func (f *FakeIdP) handleAccount(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.profileStatus
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !f.bearerAccepted(r) || r.Header.Get("Accept") != "application/json" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, f.Profile)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func randomToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
