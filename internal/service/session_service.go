package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
	"github.com/spec-kit/fungi-catalog/internal/observability"
	"github.com/spec-kit/fungi-catalog/internal/repository"
)

// ErrNotAuthenticated means the request's session cookies do not form a live session.
var ErrNotAuthenticated = auth.ErrNotAuthenticated

// SessionService binds a request's cookie pair to the session store.
type SessionService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	principals repository.PrincipalRepository
	tokenMgr   *auth.TokenManager
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// SessionDependencies encapsulates collaborators of the session service.
type SessionDependencies struct {
	UserRepo      repository.UserRepository
	TokenRepo     repository.TokenRepository
	PrincipalRepo repository.PrincipalRepository
	TokenManager  *auth.TokenManager
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		users:      deps.UserRepo,
		tokens:     deps.TokenRepo,
		principals: deps.PrincipalRepo,
		tokenMgr:   deps.TokenManager,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Authenticate resolves the session once per request. All of the following
// must hold:
//   - the signed cookie verifies and has not expired
//   - a server-side principal is bound to the opaque cookie
//   - the opaque token is active for that principal's user
//   - the signed token names the same user and is active too
func (s *SessionService) Authenticate(ctx context.Context, sc *auth.SessionContext) (*domain.Principal, error) {
	if !sc.HasCredentials() {
		return nil, ErrNotAuthenticated
	}
	if sc.IsResolved() {
		principal, _, err := sc.Result()
		return principal, err
	}

	principal, claims, err := s.authenticate(ctx, sc)
	sc.Resolve(principal, claims, err)

	switch {
	case err == nil:
		s.metrics.RecordAuth("session", observability.OutcomeSuccess)
	case errors.Is(err, auth.ErrTokenExpired):
		s.metrics.RecordAuth("session", observability.OutcomeExpired)
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, auth.ErrTokenInvalid):
		s.metrics.RecordAuth("session", observability.OutcomeRejected)
	default:
		s.metrics.RecordAuth("session", observability.OutcomeError)
		s.logger.Error("session lookup failed", zap.Error(err))
	}
	return principal, err
}

func (s *SessionService) authenticate(ctx context.Context, sc *auth.SessionContext) (*domain.Principal, *auth.Claims, error) {
	claims, err := s.tokenMgr.Verify(sc.SignedToken)
	if err != nil {
		return nil, nil, err
	}

	principal, err := s.principals.Get(ctx, sc.OpaqueToken)
	if err != nil {
		return nil, nil, fmt.Errorf("load session principal: %w", err)
	}
	if principal == nil || principal.UserID != claims.UserID {
		return nil, nil, ErrNotAuthenticated
	}

	for _, check := range []struct {
		kind  domain.TokenKind
		token string
	}{
		{domain.TokenKindOpaque, sc.OpaqueToken},
		{domain.TokenKindSigned, sc.SignedToken},
	} {
		active, err := s.tokens.IsActive(ctx, principal.UserID, check.kind, check.token)
		if err != nil {
			return nil, nil, fmt.Errorf("check %s token: %w", check.kind, err)
		}
		if !active {
			return nil, nil, ErrNotAuthenticated
		}
	}
	return principal, claims, nil
}

// IsLoggedIn reports whether the request carries a live session.
func (s *SessionService) IsLoggedIn(ctx context.Context, sc *auth.SessionContext) bool {
	principal, err := s.Authenticate(ctx, sc)
	return err == nil && principal != nil
}

// IsAdmin reports whether the request is logged in and both the token's role
// claim and the stored account carry the admin role.
func (s *SessionService) IsAdmin(ctx context.Context, sc *auth.SessionContext) bool {
	principal, err := s.Authenticate(ctx, sc)
	if err != nil || principal == nil {
		return false
	}
	_, claims, _ := sc.Result()
	if claims == nil || claims.Role != domain.RoleAdmin {
		return false
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("load user for role check", zap.Int64("user_id", principal.UserID), zap.Error(err))
		}
		return false
	}
	return user.IsAdmin()
}

// CurrentUser returns the logged-in account without its password hash, or
// nil when the request is not logged in.
func (s *SessionService) CurrentUser(ctx context.Context, sc *auth.SessionContext) (*domain.User, error) {
	principal, err := s.Authenticate(ctx, sc)
	if err != nil || principal == nil {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user.Public(), nil
}
