package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/mocks"
	fakes "github.com/ocfl-archive/clerk-login/internal/mocks/auth"
	"github.com/ocfl-archive/clerk-login/internal/observability/statsd"
	"github.com/ocfl-archive/clerk-login/internal/ports"
	"github.com/ocfl-archive/clerk-login/internal/session"
	"github.com/ocfl-archive/clerk-login/internal/testutil"
)

var testProfile = domainauth.Profile{
	ID:        "f1d2",
	Username:  "ada",
	Email:     "ada@example.com",
	FirstName: "Ada",
	LastName:  "Lovelace",
}

func factoryFor(adapter ports.AuthAdapter, seen *[]domainauth.AdapterConfig) ports.AdapterFactory {
	return func(cfg domainauth.AdapterConfig) (ports.AuthAdapter, error) {
		*seen = append(*seen, cfg)
		return adapter, nil
	}
}

func newTestBootstrap(t *testing.T, factory ports.AdapterFactory, writer ports.SessionWriter) (*AuthBootstrap, *testutil.LogRecorder, *statsd.Recorder) {
	t.Helper()
	logger, logs := testutil.NewLogRecorder()
	sink := &statsd.Recorder{}
	b, err := NewAuthBootstrap(AuthBootstrapOptions{
		Factory: factory,
		Writer:  writer,
		Logger:  logger,
		Metrics: sink,
	})
	require.NoError(t, err)
	return b, logs, sink
}

func TestNewAuthBootstrap_RequiresDependencies(t *testing.T) {
	_, err := NewAuthBootstrap(AuthBootstrapOptions{Writer: session.NewContext()})
	require.EqualError(t, err, "AdapterFactory is required")

	_, err = NewAuthBootstrap(AuthBootstrapOptions{Factory: fakes.NewFakeAdapter().Factory(nil)})
	require.EqualError(t, err, "SessionWriter is required")
}

func TestAuthBootstrap_Run_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockAuthAdapter(ctrl)

	gomock.InOrder(
		adapter.EXPECT().Init(gomock.Any(), domainauth.BootstrapInitOptions()).Return(nil),
		adapter.EXPECT().LoadUserProfile(gomock.Any()).Return(testProfile, nil),
		adapter.EXPECT().Token().Return("eyJ.access.token"),
	)

	var seen []domainauth.AdapterConfig
	sess := session.NewContext()
	b, logs, sink := newTestBootstrap(t, factoryFor(adapter, &seen), sess)

	res := b.Run(context.Background())

	require.True(t, res.OK())
	assert.Same(t, adapter, res.Adapter)
	assert.Equal(t, testProfile, res.Profile)
	assert.Equal(t, "eyJ.access.token", res.Token)

	profile, ok := sess.ProfileView().Get()
	require.True(t, ok)
	assert.Equal(t, testProfile, profile)
	token, ok := sess.TokenView().Get()
	require.True(t, ok)
	assert.Equal(t, "eyJ.access.token", token)

	assert.Equal(t, []domainauth.AdapterConfig{domainauth.DefaultAdapterConfig()}, seen)
	assert.Empty(t, logs.Records(slog.LevelError))

	info := logs.Records(slog.LevelInfo)
	require.Len(t, info, 1)
	id, ok := testutil.Attr(info[0], "bootstrap_id")
	require.True(t, ok)
	assert.NotEmpty(t, id.String())

	got := sink.Metrics()
	require.NotEmpty(t, got)
	assert.Equal(t, "auth.bootstrap", got[0].Name)
	assert.Equal(t, "success", got[0].Tags["result"])
}

func TestAuthBootstrap_Run_InitRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockAuthAdapter(ctrl)
	cause := errors.New("network unreachable")

	adapter.EXPECT().Init(gomock.Any(), domainauth.BootstrapInitOptions()).Return(cause)
	adapter.EXPECT().LoadUserProfile(gomock.Any()).Times(0)
	adapter.EXPECT().Token().Times(0)

	var seen []domainauth.AdapterConfig
	sess := session.NewContext()
	b, logs, sink := newTestBootstrap(t, factoryFor(adapter, &seen), sess)

	res := b.Run(context.Background())

	require.False(t, res.OK())
	assert.True(t, apperrors.IsAuthBootstrap(res.Err))
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, apperrors.StageInitialize, apperrors.GetField(res.Err))

	assertUnset(t, sess)

	records := logs.Records(slog.LevelDebug)
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelError, records[0].Level)
	assert.Equal(t, "failed to initialize adapter", records[0].Message)
	logged, ok := testutil.Attr(records[0], "error")
	require.True(t, ok)
	assert.Contains(t, logged.String(), "network unreachable")

	got := sink.Metrics()
	require.NotEmpty(t, got)
	assert.Equal(t, "error", got[0].Tags["result"])
	assert.Equal(t, "initialize_adapter", got[0].Tags["stage"])
}

func TestAuthBootstrap_Run_ProfileRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockAuthAdapter(ctrl)
	cause := errors.New("fetch profile: unexpected status 401")

	gomock.InOrder(
		adapter.EXPECT().Init(gomock.Any(), gomock.Any()).Return(nil),
		adapter.EXPECT().LoadUserProfile(gomock.Any()).Return(domainauth.Profile{}, cause),
	)
	adapter.EXPECT().Token().Times(0)

	var seen []domainauth.AdapterConfig
	sess := session.NewContext()
	b, logs, _ := newTestBootstrap(t, factoryFor(adapter, &seen), sess)

	res := b.Run(context.Background())

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, apperrors.StageLoadProfile, apperrors.GetField(res.Err))
	assert.NotNil(t, res.Adapter)

	assertUnset(t, sess)

	records := logs.Records(slog.LevelDebug)
	require.Len(t, records, 1)
	assert.Equal(t, "failed to initialize adapter", records[0].Message)
}

func TestAuthBootstrap_Run_FactoryFails(t *testing.T) {
	cause := errors.New("bad config")
	factory := func(domainauth.AdapterConfig) (ports.AuthAdapter, error) { return nil, cause }

	sess := session.NewContext()
	b, logs, _ := newTestBootstrap(t, factory, sess)

	res := b.Run(context.Background())

	require.False(t, res.OK())
	assert.Nil(t, res.Adapter)
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, apperrors.StageConstruct, apperrors.GetField(res.Err))
	assertUnset(t, sess)
	assert.Len(t, logs.Records(slog.LevelError), 1)
}

func TestAuthBootstrap_Run_FactoryReturnsNil(t *testing.T) {
	factory := func(domainauth.AdapterConfig) (ports.AuthAdapter, error) { return nil, nil }
	b, logs, _ := newTestBootstrap(t, factory, session.NewContext())

	res := b.Run(context.Background())

	require.False(t, res.OK())
	assert.Equal(t, apperrors.StageConstruct, apperrors.GetField(res.Err))
	assert.Len(t, logs.Records(slog.LevelError), 1)
}

func TestAuthBootstrap_Run_CanceledContextIsNotRetried(t *testing.T) {
	fake := fakes.NewFakeAdapter()
	fake.InitFunc = func(ctx context.Context, _ domainauth.InitOptions) error { return ctx.Err() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &fakes.RecordingWriter{}
	b, logs, _ := newTestBootstrap(t, fake.Factory(nil), writer)
	res := b.Run(ctx)

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Len(t, fake.InitCalls(), 1)
	assert.Zero(t, fake.ProfileCalls())
	assert.Empty(t, writer.Calls())
	assert.Len(t, logs.Records(slog.LevelError), 1)
}

func TestAuthBootstrap_Run_PublishesOnceWithAdapterToken(t *testing.T) {
	fake := fakes.NewFakeAdapter()
	writer := &fakes.RecordingWriter{}
	var seen []domainauth.AdapterConfig
	b, _, _ := newTestBootstrap(t, fake.Factory(&seen), writer)

	res := b.Run(context.Background())

	require.True(t, res.OK())
	require.Equal(t, []fakes.Publication{{Profile: fake.Profile, Token: fake.AccessTok}}, writer.Calls())
	assert.Equal(t, []domainauth.InitOptions{{OnLoad: domainauth.OnLoadLoginRequired}}, fake.InitCalls())
	assert.Equal(t, "https://auth.ub.unibas.ch", seen[0].URL)
	assert.Equal(t, "test", seen[0].Realm)
	assert.Equal(t, "graphql-demo", seen[0].ClientID)
}

func TestAuthBootstrap_SubscriberObservations(t *testing.T) {
	fake := fakes.NewFakeAdapter()
	sess := session.NewContext()

	type obs struct {
		token string
		ok    bool
	}
	var early []obs
	unsubscribe := sess.TokenView().Subscribe(func(v string, ok bool) { early = append(early, obs{v, ok}) })
	defer unsubscribe()

	b, _, _ := newTestBootstrap(t, fake.Factory(nil), sess)
	require.True(t, b.Run(context.Background()).OK())

	assert.Equal(t, []obs{{"", false}, {fake.AccessTok, true}}, early)

	var late []obs
	sess.TokenView().Subscribe(func(v string, ok bool) { late = append(late, obs{v, ok}) })
	assert.Equal(t, []obs{{fake.AccessTok, true}}, late)
}

func assertUnset(t *testing.T, sess *session.Context) {
	t.Helper()
	_, ok := sess.ProfileView().Get()
	assert.False(t, ok, "profile must stay unset")
	_, ok = sess.TokenView().Get()
	assert.False(t, ok, "token must stay unset")
}
