package oidc

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
)

const shutdownTimeout = 5 * time.Second

const loginCompletePage = `<!doctype html><html><head><title>Login complete</title></head>` +
	`<body><p>Login complete. You can close this window.</p></body></html>`

type callbackResult struct {
	code string
	err  error
}

// login runs the authorization code flow with PKCE over a loopback redirect.
// It blocks until the callback arrives or ctx is done.
func (a *Adapter) login(ctx context.Context) (domainauth.TokenSet, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.callbackAddr)
	if err != nil {
		return domainauth.TokenSet{}, fmt.Errorf("listen for login callback: %w", err)
	}
	redirectURL := "http://" + ln.Addr().String() + a.callbackPath

	// 32 random bytes each, base64url encoded.
	state := oauth2.GenerateVerifier()
	nonce := oauth2.GenerateVerifier()
	pkceVerifier := oauth2.GenerateVerifier()

	a.mu.RLock()
	conf := &oauth2.Config{
		ClientID:    a.cfg.ClientID,
		RedirectURL: redirectURL,
		Endpoint:    a.provider.Endpoint(),
		Scopes:      a.scopes,
	}
	a.mu.RUnlock()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("GET "+a.callbackPath, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if sErr := srv.Serve(ln); sErr != nil && !errors.Is(sErr, http.ErrServerClosed) {
			serveErr <- sErr
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
			a.logger.WarnContext(ctx, "shutdown login callback listener", "error", sErr)
		}
	}()

	authURL := conf.AuthCodeURL(state, gooidc.Nonce(nonce), oauth2.S256ChallengeOption(pkceVerifier))
	a.logger.InfoContext(ctx, "interactive login required", "redirect_url", redirectURL)
	if openErr := a.opener.Open(ctx, authURL); openErr != nil {
		return domainauth.TokenSet{}, fmt.Errorf("open login page: %w", openErr)
	}

	var res callbackResult
	select {
	case res = <-results:
	case sErr := <-serveErr:
		return domainauth.TokenSet{}, fmt.Errorf("login callback listener: %w", sErr)
	case <-ctx.Done():
		return domainauth.TokenSet{}, fmt.Errorf("wait for login callback: %w", ctx.Err())
	}
	if res.err != nil {
		return domainauth.TokenSet{}, res.err
	}

	return a.exchange(ctx, conf, res.code, pkceVerifier, nonce)
}

func (a *Adapter) exchange(
	ctx context.Context,
	conf *oauth2.Config,
	code, pkceVerifier, nonce string,
) (domainauth.TokenSet, error) {
	cctx := a.clientContext(ctx)
	tok, err := conf.Exchange(cctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		return domainauth.TokenSet{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return domainauth.TokenSet{}, err
	}
	a.mu.RLock()
	verifier := a.verifier
	a.mu.RUnlock()
	idTok, err := verifier.Verify(cctx, rawID)
	if err != nil {
		return domainauth.TokenSet{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != nonce {
		return domainauth.TokenSet{}, errors.New("invalid nonce")
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		if claims, cErr := ParseAccessToken(tok.AccessToken); cErr == nil {
			expiry = claims.ExpiresAt
		}
	}

	a.logger.InfoContext(ctx, "login complete", "subject", idTok.Subject, "expires_at", expiry)
	return domainauth.TokenSet{
		AccessToken:  tok.AccessToken,
		IDToken:      rawID,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       expiry,
	}, nil
}

// callbackHandler delivers the first callback outcome to results.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("login failed: %s: %s", q.Get("error"), q.Get("error_description"))
		case q.Get("state") != state:
			res.err = errors.New("login callback state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("login callback without authorization code")
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "<!doctype html><p>"+html.EscapeString(res.err.Error())+"</p>")
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, loginCompletePage)
	})
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
