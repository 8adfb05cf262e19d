// Package service provides the orchestration logic of the login bootstrap.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/observability/metrics"
	"github.com/ocfl-archive/clerk-login/internal/observability/statsd"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// AuthBootstrapOptions groups dependencies for AuthBootstrap.
type AuthBootstrapOptions struct {
	Factory ports.AdapterFactory // Required: builds the adapter from the fixed config
	Writer  ports.SessionWriter  // Required: the only write path into the session state
	Logger  *slog.Logger         // Optional: structured logger
	Metrics statsd.Sink          // Optional: metrics sink (StatsD-compatible)
}

// AuthBootstrap runs the one-shot authentication bootstrap.
type AuthBootstrap struct {
	factory ports.AdapterFactory
	writer  ports.SessionWriter
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// BootstrapResult is the outcome of a run. Err is nil on success.
// Adapter is set whenever construction succeeded, so the caller can close it.
type BootstrapResult struct {
	Adapter ports.AuthAdapter
	Profile domainauth.Profile
	Token   string
	Err     error
}

// OK reports whether the profile and token were published.
func (r BootstrapResult) OK() bool { return r.Err == nil }

// NewAuthBootstrap constructs a new AuthBootstrap.
func NewAuthBootstrap(opts AuthBootstrapOptions) (*AuthBootstrap, error) {
	if opts.Factory == nil {
		return nil, errors.New("AdapterFactory is required")
	}
	if opts.Writer == nil {
		return nil, errors.New("SessionWriter is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthBootstrap{
		factory: opts.Factory,
		writer:  opts.Writer,
		logger:  logger.With("component", "auth_bootstrap"),
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// Run constructs the adapter, initializes it with login-required, loads the
// profile and publishes profile and token. On any failure nothing is published
// and exactly one error record is logged. Run never retries.
func (b *AuthBootstrap) Run(ctx context.Context) BootstrapResult {
	start := b.now()
	logger := b.logger.With("bootstrap_id", uuid.NewString())

	res := b.run(ctx)

	stage := apperrors.GetField(res.Err)
	result := metrics.ResultSuccess
	if res.Err != nil {
		result = metrics.ResultError
		logger.ErrorContext(ctx, "failed to initialize adapter", "error", res.Err, "stage", stage)
	} else {
		logger.InfoContext(ctx, "authentication bootstrap complete",
			"user_id", res.Profile.ID,
			"username", res.Profile.Username,
		)
	}

	elapsed := b.now().Sub(start)
	metrics.EmitBootstrap(b.metrics, metrics.BootstrapMetric{
		Result:   result,
		Stage:    stage,
		Duration: elapsed,
	})
	if res.Err == nil && b.metrics != nil {
		b.metrics.Gauge("auth.bootstrap.last_success_epoch", float64(b.now().Unix()), nil)
	}
	return res
}

func (b *AuthBootstrap) run(ctx context.Context) BootstrapResult {
	adapter, err := b.factory(domainauth.DefaultAdapterConfig())
	if err != nil {
		return BootstrapResult{Err: apperrors.AuthBootstrap(apperrors.StageConstruct, err)}
	}
	if adapter == nil {
		return BootstrapResult{Err: apperrors.AuthBootstrap(apperrors.StageConstruct, errors.New("factory returned no adapter"))}
	}

	if err := adapter.Init(ctx, domainauth.BootstrapInitOptions()); err != nil {
		return BootstrapResult{Adapter: adapter, Err: apperrors.AuthBootstrap(apperrors.StageInitialize, err)}
	}

	profile, err := adapter.LoadUserProfile(ctx)
	if err != nil {
		return BootstrapResult{Adapter: adapter, Err: apperrors.AuthBootstrap(apperrors.StageLoadProfile, err)}
	}

	token := adapter.Token()
	b.writer.Publish(profile, token)
	return BootstrapResult{Adapter: adapter, Profile: profile, Token: token}
}
