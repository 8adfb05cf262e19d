// Package browser sends the user agent to the identity provider's login page.
package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/browser"

	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// OpenerFunc adapts a function to ports.BrowserOpener.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

var (
	_ ports.BrowserOpener = OpenerFunc(nil)
	_ ports.BrowserOpener = (*SystemOpener)(nil)
	_ ports.BrowserOpener = (*PromptOpener)(nil)
)

// SystemOpener launches the platform's default browser. When that fails the URL is
// printed so the user can open it by hand, and the login keeps waiting for the callback.
type SystemOpener struct {
	Out    io.Writer
	Logger *slog.Logger

	// openURL is swapped in tests.
	openURL func(string) error
}

// NewSystemOpener creates a SystemOpener printing fallbacks to out.
func NewSystemOpener(out io.Writer, logger *slog.Logger) *SystemOpener {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemOpener{Out: out, Logger: logger, openURL: openQuietly}
}

func (o *SystemOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	open := o.openURL
	if open == nil {
		open = openQuietly
	}
	if err := open(url); err != nil {
		o.Logger.WarnContext(ctx, "could not launch browser, falling back to manual login", "error", err)
		return printPrompt(o.Out, url)
	}
	o.Logger.InfoContext(ctx, "opened browser for login")
	return nil
}

// PromptOpener only prints the URL. Used when OpenBrowser is disabled, e.g. over SSH.
type PromptOpener struct {
	Out    io.Writer
	Logger *slog.Logger
}

func (o *PromptOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.Logger != nil {
		o.Logger.InfoContext(ctx, "waiting for manual login")
	}
	return printPrompt(o.Out, url)
}

func printPrompt(out io.Writer, url string) error {
	if out == nil {
		return nil
	}
	if _, err := fmt.Fprintf(out, "Open the following URL in your browser to log in:\n\n  %s\n\n", url); err != nil {
		return fmt.Errorf("print login url: %w", err)
	}
	return nil
}

// openQuietly keeps the launcher's own output off the terminal.
func openQuietly(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}
