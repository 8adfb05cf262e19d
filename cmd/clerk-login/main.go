package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocfl-archive/clerk-login/internal/bootstrap"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := &cli{
		out:        os.Stdout,
		errOut:     os.Stderr,
		loadConfig: bootstrap.LoadConfig,
	}
	err := newRootCmd(c).ExecuteContext(ctx)
	stop()
	if err != nil {
		// Bootstrap failures were already logged by the bootstrap itself.
		if !apperrors.IsAuthBootstrap(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}
