package handlers

import (
	"context"
	"errors"

	"github.com/spec-kit/fungi-catalog/internal/repository"
	"github.com/spec-kit/fungi-catalog/internal/service"
	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

// mapServiceError translates service failures to client-facing errors.
// Store failures keep their cause for logging but expose a generic message.
func mapServiceError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make(map[string]any, len(verr.Fields))
		for field, rule := range verr.Fields {
			details[field] = rule
		}
		return apperrors.NewValidationError("invalid input", details)
	case errors.Is(err, repository.ErrUserExists):
		return apperrors.NewConflict("user or email already exists", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewInvalidCredentials()
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, service.ErrTokenNotFound):
		return apperrors.NewNotFound("token", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeout(err)
	default:
		return apperrors.NewInternalError(err)
	}
}
