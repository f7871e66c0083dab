package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fungi-catalog/internal/domain"
	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

const (
	sessionKey   = "auth_session"
	principalKey = "auth_principal"
)

// SessionAuthority resolves session cookies to an authenticated principal.
type SessionAuthority interface {
	Authenticate(ctx context.Context, sc *SessionContext) (*domain.Principal, error)
	IsAdmin(ctx context.Context, sc *SessionContext) bool
}

// AuthMiddleware binds the session cookies of each request to the session store.
type AuthMiddleware struct {
	authority SessionAuthority
	cookies   *Cookies
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authority SessionAuthority, cookies *Cookies) *AuthMiddleware {
	return &AuthMiddleware{authority: authority, cookies: cookies}
}

// Handle attaches a fresh SessionContext to every request. It never rejects.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	c.Locals(sessionKey, m.cookies.Read(c))
	return c.Next()
}

// RequireSession enforces an authenticated session for protected routes.
func (m *AuthMiddleware) RequireSession(c *fiber.Ctx) error {
	sc := SessionFromContext(c)
	if !sc.HasCredentials() {
		return apperrors.NewUnauthorized("authentication required")
	}

	principal, err := m.authority.Authenticate(c.UserContext(), sc)
	if err != nil {
		if !IsRejection(err) {
			// The cookies may still be valid; keep them for a retry.
			if errors.Is(err, context.DeadlineExceeded) {
				return apperrors.NewTimeout(err)
			}
			return apperrors.NewInternalError(err)
		}
		m.cookies.Clear(c)
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewSessionExpired()
		}
		return apperrors.NewUnauthorized("authentication required")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// SessionFromContext returns the request's SessionContext, creating an empty
// one when the middleware did not run.
func SessionFromContext(c *fiber.Ctx) *SessionContext {
	if sc, ok := c.Locals(sessionKey).(*SessionContext); ok && sc != nil {
		return sc
	}
	sc := NewSessionContext("", "")
	c.Locals(sessionKey, sc)
	return sc
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}
