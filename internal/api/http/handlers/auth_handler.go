package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fungi-catalog/internal/api/dto"
	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/service"
	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

// AuthHandler exposes the cookie-based web session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	cookies  *auth.Cookies
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, sessions *service.SessionService, cookies *auth.Cookies, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, sessions: sessions, cookies: cookies, logger: logger}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"user": dto.NewUserResponse(user)},
	})
}

// Login handles POST /auth/login. Cookies are only set once the session is stored.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewInvalidCredentials()
	}

	res, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	h.cookies.Set(c, res.OpaqueToken, res.SignedToken, res.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": dto.SessionResponse{User: dto.NewUserResponse(res.User), ExpiresAt: res.ExpiresAt},
	})
}

// Logout handles POST /auth/logout. Cookies are cleared even without a live session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := logoutSession(c, h.auth, h.sessions); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		return mapServiceError(err)
	}
	h.cookies.Clear(c)
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.sessions.CurrentUser(c.UserContext(), auth.SessionFromContext(c))
	if err != nil {
		return mapServiceError(err)
	}
	if user == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// logoutSession revokes the caller's sessions when the cookies form a live one.
// Cookies that do not form a session need no revocation; a store failure does
// and is returned so the caller is not told the session ended.
func logoutSession(c *fiber.Ctx, authService *service.AuthService, sessions *service.SessionService) error {
	sc := auth.SessionFromContext(c)
	if !sc.HasCredentials() {
		return nil
	}
	principal, err := sessions.Authenticate(c.UserContext(), sc)
	if err != nil {
		if auth.IsRejection(err) {
			return nil
		}
		return err
	}
	if principal == nil {
		return nil
	}
	return authService.Logout(c.UserContext(), principal.UserID)
}
