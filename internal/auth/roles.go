package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

// RequireAdmin ensures the authenticated caller is an administrator.
// It must run after RequireSession.
func (m *AuthMiddleware) RequireAdmin(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !m.authority.IsAdmin(c.UserContext(), SessionFromContext(c)) {
		return apperrors.NewForbidden("admin role required")
	}
	return c.Next()
}
