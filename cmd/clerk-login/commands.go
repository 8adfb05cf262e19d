package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ocfl-archive/clerk-login/config"
	"github.com/ocfl-archive/clerk-login/internal/bootstrap"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

type cli struct {
	out    io.Writer
	errOut io.Writer

	loadConfig func() (config.AppConfig, error)
	// factory overrides the adapter factory derived from the config.
	factory ports.AdapterFactory

	logLevel string
	cfg      config.AppConfig
	logger   *slog.Logger
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "clerk-login",
		Short: "Log in to the archive's identity provider and publish the session",
		Long: `clerk-login authenticates the current user against the configured
Keycloak realm, loads the user profile and makes profile and bearer token
available to local views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(
		newLoginCmd(c),
		newServeCmd(c),
		newLogoutCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if lvl := strings.TrimSpace(c.logLevel); lvl != "" {
		cfg.LogLevel = lvl
		cfg.Sanitize()
	}
	c.cfg = cfg
	c.logger = bootstrap.InitLogger(c.errOut, cfg.SlogLevel())
	return nil
}

func (c *cli) newApp(ctx context.Context) (*bootstrap.App, error) {
	return bootstrap.NewApp(ctx, bootstrap.AppOptions{
		Config:  c.cfg,
		Logger:  c.logger,
		Out:     c.errOut,
		Factory: c.factory,
	})
}

// closeApp logs instead of failing the command; the command's own result matters more.
func (c *cli) closeApp(ctx context.Context, app *bootstrap.App) {
	if err := app.Close(); err != nil {
		c.logger.ErrorContext(ctx, "close failed", "error", err)
	}
}

func newLoginCmd(c *cli) *cobra.Command {
	var printToken bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the authentication bootstrap once and report who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := c.newApp(ctx)
			defer c.closeApp(ctx, app)
			if err != nil {
				return err
			}

			res := app.Login(ctx)
			if !res.OK() {
				return res.Err
			}
			if printToken {
				_, err = fmt.Fprintln(c.out, res.Token)
				return err
			}
			_, err = fmt.Fprintf(c.out, "Logged in as %s <%s>\n", res.Profile.DisplayName(), res.Profile.Email)
			return err
		},
	}
	cmd.Flags().BoolVar(&printToken, "print-token", false, "print only the bearer token")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var exitOnFailure bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session views and run the authentication bootstrap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := c.newApp(ctx)
			defer c.closeApp(ctx, app)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return bootstrap.ServeHTTP(gctx, bootstrap.HTTPServerConfig{
					HTTP:    c.cfg.HTTP,
					Session: app.Session,
					Logger:  c.logger,
				})
			})
			g.Go(func() error {
				res := app.Login(gctx)
				if !res.OK() && exitOnFailure {
					return res.Err
				}
				// The views keep reporting an unauthenticated session.
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&exitOnFailure, "exit-on-failure", false, "stop serving when the bootstrap fails")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session and print the provider's logout URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := c.newApp(ctx)
			defer c.closeApp(ctx, app)
			if err != nil {
				return err
			}

			endSession, err := app.Logout(ctx)
			if err != nil {
				return err
			}
			if endSession == "" {
				_, err = fmt.Fprintln(c.out, "Logged out.")
				return err
			}
			_, err = fmt.Fprintf(c.out, "Logged out locally. To end the provider session, open:\n  %s\n", endSession)
			return err
		},
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the adapter configuration and effective settings",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			adapter := c.cfg.Adapter()
			tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
			rows := [][2]string{
				{"url", adapter.URL},
				{"realm", adapter.Realm},
				{"client_id", adapter.ClientID},
				{"issuer", adapter.Issuer()},
				{"auth_mode", string(c.cfg.Auth.Mode)},
				{"token_store", string(c.cfg.Storage.Kind)},
				{"http_addr", c.cfg.HTTP.Addr},
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
}
