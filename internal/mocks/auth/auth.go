package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAdapter   = (*FakeAdapter)(nil)
	_ ports.BrowserOpener = (*RecordingOpener)(nil)
	_ ports.SessionWriter = (*RecordingWriter)(nil)
)

// FakeAdapter simulates an identity provider adapter with deterministic results.
// Set InitErr or ProfileErr to make the corresponding step reject.
type FakeAdapter struct {
	InitFunc    func(ctx context.Context, opts domainauth.InitOptions) error
	ProfileFunc func(ctx context.Context) (domainauth.Profile, error)

	InitErr    error
	ProfileErr error
	Profile    domainauth.Profile
	AccessTok  string
	LogoutURL  string

	mu            sync.Mutex
	authenticated bool
	initCalls     []domainauth.InitOptions
	profileCalls  int
	closed        bool
}

// NewFakeAdapter returns a FakeAdapter that logs in as a fixed test user.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		Profile: domainauth.Profile{
			ID:        "fake-user-1",
			Username:  "fake",
			Email:     "fake.user@example.com",
			FirstName: "Fake",
			LastName:  "User",
		},
		AccessTok: "fake-access-token",
	}
}

// Factory returns a ports.AdapterFactory handing out f and recording the configs it was called with.
func (f *FakeAdapter) Factory(seen *[]domainauth.AdapterConfig) ports.AdapterFactory {
	return func(cfg domainauth.AdapterConfig) (ports.AuthAdapter, error) {
		if seen != nil {
			*seen = append(*seen, cfg)
		}
		return f, nil
	}
}

func (f *FakeAdapter) Init(ctx context.Context, opts domainauth.InitOptions) error {
	f.mu.Lock()
	f.initCalls = append(f.initCalls, opts)
	f.mu.Unlock()

	var err error
	switch {
	case f.InitFunc != nil:
		err = f.InitFunc(ctx, opts)
	default:
		err = f.InitErr
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.authenticated = true
	f.mu.Unlock()
	return nil
}

func (f *FakeAdapter) LoadUserProfile(ctx context.Context) (domainauth.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()

	if f.ProfileFunc != nil {
		return f.ProfileFunc(ctx)
	}
	if f.ProfileErr != nil {
		return domainauth.Profile{}, f.ProfileErr
	}
	return f.Profile, nil
}

func (f *FakeAdapter) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authenticated {
		return ""
	}
	return f.AccessTok
}

func (f *FakeAdapter) Authenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *FakeAdapter) Logout(context.Context) (string, error) {
	f.mu.Lock()
	f.authenticated = false
	f.mu.Unlock()
	return f.LogoutURL, nil
}

func (f *FakeAdapter) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// InitCalls returns the options Init was called with, in order.
func (f *FakeAdapter) InitCalls() []domainauth.InitOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domainauth.InitOptions(nil), f.initCalls...)
}

// ProfileCalls returns how often LoadUserProfile was called.
func (f *FakeAdapter) ProfileCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls
}

// Closed reports whether Close was called.
func (f *FakeAdapter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// RecordingOpener records the URLs it is asked to open.
type RecordingOpener struct {
	Err error

	mu   sync.Mutex
	urls []string
}

func (o *RecordingOpener) Open(_ context.Context, url string) error {
	o.mu.Lock()
	o.urls = append(o.urls, url)
	o.mu.Unlock()
	return o.Err
}

// URLs returns the opened URLs, in order.
func (o *RecordingOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.urls...)
}

// Publication is one call to RecordingWriter.Publish.
type Publication struct {
	Profile domainauth.Profile
	Token   string
}

// RecordingWriter records every publication instead of updating state.
type RecordingWriter struct {
	mu    sync.Mutex
	calls []Publication
}

func (w *RecordingWriter) Publish(profile domainauth.Profile, token string) {
	w.mu.Lock()
	w.calls = append(w.calls, Publication{Profile: profile, Token: token})
	w.mu.Unlock()
}

// Calls returns the recorded publications, in order.
func (w *RecordingWriter) Calls() []Publication {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Publication(nil), w.calls...)
}
