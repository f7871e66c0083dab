package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fungi-catalog/internal/api/dto"
	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/service"
	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

// AdminHandler exposes session administration for admins.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// RevokeSessions handles POST /api/admin/users/:id/sessions/revoke.
func (h *AdminHandler) RevokeSessions(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := h.auth.RevokeAllSessions(c.UserContext(), userID, actorID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// RevokeToken handles POST /api/admin/tokens/revoke.
func (h *AdminHandler) RevokeToken(c *fiber.Ctx) error {
	var req dto.RevokeTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.UserID <= 0 || req.Token == "" {
		return apperrors.NewValidationError("user_id and token required", nil)
	}
	if err := h.auth.RevokeToken(c.UserContext(), req.UserID, req.Token, actorID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// SetRole handles PUT /api/admin/users/:id/role.
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.auth.SetRole(c.UserContext(), userID, req.Role, actorID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid user id", nil)
	}
	return int64(id), nil
}

func actorID(c *fiber.Ctx) *int64 {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	id := principal.UserID
	return &id
}
