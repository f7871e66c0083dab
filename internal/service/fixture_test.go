package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/config"
	"github.com/spec-kit/fungi-catalog/internal/domain"
	"github.com/spec-kit/fungi-catalog/internal/events"
	"github.com/spec-kit/fungi-catalog/internal/repository"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	clock      *testClock
	users      repository.UserRepository
	tokens     repository.TokenRepository
	principals repository.PrincipalRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	auth       *AuthService
	sessions   *SessionService
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        strings.Repeat("k", config.MinJWTSecretBytes),
			JWTIssuer:        "fungi-catalog",
			SessionTTLHours:  24 * 30,
			OpaqueTokenBytes: 32,
			BcryptCost:       bcrypt.MinCost,
		},
	}
}

type fixtureOption func(*fixture)

func withTokenRepo(wrap func(repository.TokenRepository) repository.TokenRepository) fixtureOption {
	return func(f *fixture) { f.tokens = wrap(f.tokens) }
}

func withPrincipalRepo(wrap func(repository.PrincipalRepository) repository.PrincipalRepository) fixtureOption {
	return func(f *fixture) { f.principals = wrap(f.principals) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := testConfig()
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}

	f := &fixture{
		clock:      clock,
		users:      repository.NewMemoryUserRepository(),
		tokens:     repository.NewMemoryTokenRepository(clock.Now),
		principals: repository.NewMemoryPrincipalRepository(clock.Now),
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(),
			auth.WithClock(clock.Now), auth.WithIssuer(cfg.Auth.JWTIssuer)),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.auth = NewAuthService(cfg, AuthDependencies{
		UserRepo:      f.users,
		TokenRepo:     f.tokens,
		PrincipalRepo: f.principals,
		TokenManager:  f.tokenMgr,
		Dispatcher:    f.dispatcher,
	})
	f.sessions = NewSessionService(SessionDependencies{
		UserRepo:      f.users,
		TokenRepo:     f.tokens,
		PrincipalRepo: f.principals,
		TokenManager:  f.tokenMgr,
	})
	return f
}

func (f *fixture) register(t *testing.T, username, password string) *domain.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           strings.TrimSpace(username) + "@example.com",
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) login(t *testing.T, username, password string) *LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), username, password)
	require.NoError(t, err)
	return res
}

func sessionOf(res *LoginResult) *auth.SessionContext {
	return auth.NewSessionContext(res.OpaqueToken, res.SignedToken)
}
