// Package mocks provides mock implementations for testing the login bootstrap.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	adapter := mocks.NewMockAuthAdapter(ctrl)
//	adapter.EXPECT().Init(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mocks for the auth ports from the internal/ports package.
// This creates MockAuthAdapter (Init, LoadUserProfile, Token, Authenticated, Logout, Close),
// MockTokenStore (Load, Save, Delete), MockBrowserOpener (Open) and MockSessionWriter (Publish).
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_ports_mock.go github.com/ocfl-archive/clerk-login/internal/ports AuthAdapter,TokenStore,BrowserOpener,SessionWriter
