package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/fungi-catalog/internal/api/dto"
	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/service"
)

// APIAuthHandler exposes the JSON login/logout/verify endpoints.
type APIAuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	cookies  *auth.Cookies
	logger   *zap.Logger
}

// NewAPIAuthHandler constructs handler.
func NewAPIAuthHandler(authService *service.AuthService, sessions *service.SessionService, cookies *auth.Cookies, logger *zap.Logger) *APIAuthHandler {
	return &APIAuthHandler{auth: authService, sessions: sessions, cookies: cookies, logger: logger}
}

// Login handles POST /api/login.
func (h *APIAuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.Status(http.StatusUnauthorized).JSON(dto.APILoginResponse{Message: "invalid credentials"})
	}
	if err != nil {
		return mapServiceError(err)
	}

	h.cookies.Set(c, res.OpaqueToken, res.SignedToken, res.ExpiresAt)
	user := dto.NewUserResponse(res.User)
	return c.JSON(dto.APILoginResponse{
		Success:   true,
		Token:     res.SignedToken,
		ExpiresAt: &res.ExpiresAt,
		User:      &user,
	})
}

// Logout handles POST /api/logout.
func (h *APIAuthHandler) Logout(c *fiber.Ctx) error {
	if err := logoutSession(c, h.auth, h.sessions); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		return mapServiceError(err)
	}
	h.cookies.Clear(c)
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Verify handles POST /api/verify. It checks signature and expiry only.
func (h *APIAuthHandler) Verify(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		var req dto.VerifyRequest
		if err := c.BodyParser(&req); err == nil {
			token = strings.TrimSpace(req.Token)
		}
	}

	claims, err := h.auth.Verify(token)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "session expired"
		}
		return c.Status(http.StatusUnauthorized).JSON(dto.VerifyResponse{Message: msg})
	}

	resp := dto.NewClaimsResponse(claims)
	return c.JSON(dto.VerifyResponse{Success: true, Claims: &resp})
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
