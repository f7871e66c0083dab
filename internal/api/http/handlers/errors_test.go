package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/fungi-catalog/internal/repository"
	"github.com/spec-kit/fungi-catalog/internal/service"
	apperrors "github.com/spec-kit/fungi-catalog/pkg/util/errorutil"
)

func TestMapServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&service.ValidationError{Fields: map[string]string{"email": "email"}}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{fmt.Errorf("create: %w", repository.ErrUserExists), http.StatusConflict, "CONFLICT"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{service.ErrTokenNotFound, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("persist session: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "TIMEOUT"},
		{errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		de := apperrors.ToDomainError(mapServiceError(tc.err))
		assert.Equal(t, tc.status, de.HTTPStatus, tc.err.Error())
		assert.Equal(t, tc.code, de.Code, tc.err.Error())
	}
}

func TestMapServiceError_HidesStoreDetail(t *testing.T) {
	de := apperrors.ToDomainError(mapServiceError(errors.New("pq: password authentication failed")))
	assert.Equal(t, "internal server error", de.Message)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "a.b.c", bearerToken("Bearer a.b.c"))
	assert.Equal(t, "a.b.c", bearerToken("bearer  a.b.c "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("Bearer "))
	assert.Empty(t, bearerToken(""))
}
