package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewSessionExpired(), "SESSION_EXPIRED", http.StatusUnauthorized},
		{"wrapped domain error", fmt.Errorf("login: %w", NewInvalidCredentials()), "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"fiber error", fiber.NewError(http.StatusBadRequest, "invalid payload"), "BAD_REQUEST", http.StatusBadRequest},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "TIMEOUT", http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestInvalidCredentialsMessageIsGeneric(t *testing.T) {
	de := ToDomainError(NewInvalidCredentials())
	assert.Equal(t, "invalid credentials", de.Message)
}
