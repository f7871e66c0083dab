package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/config"
	"github.com/spec-kit/fungi-catalog/internal/domain"
	"github.com/spec-kit/fungi-catalog/internal/events"
	"github.com/spec-kit/fungi-catalog/internal/observability"
	"github.com/spec-kit/fungi-catalog/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenNotFound means the user holds no such token.
	ErrTokenNotFound = errors.New("token not found")
	// ErrUserNotFound means no account has the requested id.
	ErrUserNotFound = errors.New("user not found")
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

// ValidationError lists the rejected registration fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, rule := range e.Fields {
		parts = append(parts, field+": "+rule)
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// LoginResult carries the credentials minted by a successful login.
type LoginResult struct {
	User        *domain.User
	OpaqueToken string
	SignedToken string
	ExpiresAt   time.Time
}

// AuthService coordinates registration, login, logout and revocation.
type AuthService struct {
	users       repository.UserRepository
	tokens      repository.TokenRepository
	principals  repository.PrincipalRepository
	verifier    *auth.CredentialVerifier
	tokenMgr    *auth.TokenManager
	validate    *validator.Validate
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	bcryptCost  int
	opaqueBytes int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo      repository.UserRepository
	TokenRepo     repository.TokenRepository
	PrincipalRepo repository.PrincipalRepository
	TokenManager  *auth.TokenManager
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(), auth.WithIssuer(cfg.Auth.JWTIssuer))
	}
	return &AuthService{
		users:       deps.UserRepo,
		tokens:      deps.TokenRepo,
		principals:  deps.PrincipalRepo,
		verifier:    auth.NewCredentialVerifier(deps.UserRepo),
		tokenMgr:    tokenMgr,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		bcryptCost:  cfg.Auth.BcryptCost,
		opaqueBytes: cfg.Auth.OpaqueTokenBytes,
	}
}

// Register creates a new account with the user role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = auth.NormalizeUsername(in.Username)
	in.Email = auth.NormalizeEmail(in.Email)
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, toValidationError(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, &ValidationError{Fields: map[string]string{"password": fmt.Sprintf("max %d bytes", maxPasswordBytes)}}
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, nil))
	return user.Public(), nil
}

// Login checks credentials and issues a persisted opaque/signed token pair.
// Nothing is returned unless both tokens and the session principal were stored.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if user == nil {
		s.metrics.RecordAuth("login", observability.OutcomeFailure)
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, 0, events.LoginFailedPayload{Username: auth.NormalizeUsername(username)}))
		return nil, ErrInvalidCredentials
	}

	opaque, err := auth.NewOpaqueToken(s.opaqueBytes)
	if err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		return nil, err
	}
	signed, claims, err := s.tokenMgr.Issue(user)
	if err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	pair := domain.SessionPair{
		UserID:      user.ID,
		OpaqueToken: opaque,
		SignedToken: signed,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if err := s.tokens.Create(ctx, pair); err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		s.logger.Error("persist session tokens", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("persist session: %w", err)
	}

	principal := claims.Principal()
	if err := s.principals.Put(ctx, opaque, principal, s.tokenMgr.TTL()); err != nil {
		s.metrics.RecordAuth("login", observability.OutcomeError)
		s.logger.Error("store session principal", zap.Int64("user_id", user.ID), zap.Error(err))
		s.discardPair(ctx, pair)
		return nil, fmt.Errorf("store session principal: %w", err)
	}

	s.metrics.RecordAuth("login", observability.OutcomeSuccess)
	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{
		Username:  user.Username,
		ExpiresAt: pair.ExpiresAt,
	}))
	return &LoginResult{
		User:        user,
		OpaqueToken: opaque,
		SignedToken: signed,
		ExpiresAt:   pair.ExpiresAt,
	}, nil
}

// discardPair revokes a freshly stored pair whose login could not complete.
func (s *AuthService) discardPair(ctx context.Context, pair domain.SessionPair) {
	for _, token := range []string{pair.OpaqueToken, pair.SignedToken} {
		if err := s.tokens.Revoke(ctx, pair.UserID, token); err != nil {
			s.logger.Error("revoke orphaned token", zap.Int64("user_id", pair.UserID), zap.Error(err))
		}
	}
}

// Logout revokes every session of the user.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.revokeAll(ctx, userID); err != nil {
		s.metrics.RecordAuth("logout", observability.OutcomeError)
		return err
	}
	s.metrics.RecordAuth("logout", observability.OutcomeSuccess)
	s.publish(ctx, events.NewEvent(events.EventUserLoggedOut, userID, nil))
	return nil
}

// Verify checks a signed token's structure, signature and expiry only.
// It does not consult the revocation registry.
func (s *AuthService) Verify(token string) (*auth.Claims, error) {
	claims, err := s.tokenMgr.Verify(token)
	switch {
	case err == nil:
		s.metrics.RecordAuth("verify", observability.OutcomeSuccess)
	case errors.Is(err, auth.ErrTokenExpired):
		s.metrics.RecordAuth("verify", observability.OutcomeExpired)
	default:
		s.metrics.RecordAuth("verify", observability.OutcomeRejected)
	}
	return claims, err
}

// RevokeToken invalidates one opaque or signed token of the user.
func (s *AuthService) RevokeToken(ctx context.Context, userID int64, token string, actorID *int64) error {
	if err := s.tokens.Revoke(ctx, userID, token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		s.metrics.RecordAuth("revoke", observability.OutcomeError)
		return fmt.Errorf("revoke token: %w", err)
	}
	if err := s.principals.Delete(ctx, userID, token); err != nil {
		s.logger.Warn("delete session principal", zap.Int64("user_id", userID), zap.Error(err))
	}

	s.metrics.RecordAuth("revoke", observability.OutcomeSuccess)
	event := events.NewEvent(events.EventTokenRevoked, userID, nil)
	event.ActorID = actorID
	s.publish(ctx, event)
	return nil
}

// RevokeAllSessions invalidates every token of the user on behalf of an admin.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID int64, actorID *int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.revokeAll(ctx, userID); err != nil {
		s.metrics.RecordAuth("revoke_all", observability.OutcomeError)
		return err
	}

	s.metrics.RecordAuth("revoke_all", observability.OutcomeSuccess)
	event := events.NewEvent(events.EventSessionsRevoked, userID, events.SessionsRevokedPayload{Reason: "admin"})
	event.ActorID = actorID
	s.publish(ctx, event)
	return nil
}

// SetRole changes a user's role and ends their sessions so new tokens carry it.
func (s *AuthService) SetRole(ctx context.Context, userID int64, role domain.Role, actorID *int64) error {
	if !role.Valid() {
		return &ValidationError{Fields: map[string]string{"role": "oneof user admin"}}
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.revokeAll(ctx, userID); err != nil {
		return err
	}

	event := events.NewEvent(events.EventSessionsRevoked, userID, events.SessionsRevokedPayload{Reason: "role_changed"})
	event.ActorID = actorID
	s.publish(ctx, event)
	return nil
}

// revokeAll revokes both token kinds atomically, then drops the principals.
// A stale principal cannot authenticate once its tokens are revoked.
func (s *AuthService) revokeAll(ctx context.Context, userID int64) error {
	if err := s.tokens.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("revoke all tokens", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	if err := s.principals.DeleteAllForUser(ctx, userID); err != nil {
		s.logger.Warn("delete session principals", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += " " + fe.Param()
		}
		fields[jsonFieldName(fe.Field())] = rule
	}
	return &ValidationError{Fields: fields}
}

func jsonFieldName(field string) string {
	switch field {
	case "PasswordConfirm":
		return "password_confirm"
	default:
		return strings.ToLower(field)
	}
}
