package dto

import (
	"time"

	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// APILoginResponse is returned by the JSON login endpoint.
type APILoginResponse struct {
	Success   bool          `json:"success"`
	Token     string        `json:"token,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	User      *UserResponse `json:"user,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// VerifyRequest carries a signed token when no bearer header is sent.
type VerifyRequest struct {
	Token string `json:"token" form:"token"`
}

// ClaimsResponse is the decoded payload of a verified token.
type ClaimsResponse struct {
	Sub       int64       `json:"sub"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	IssuedAt  int64       `json:"iat"`
	ExpiresAt int64       `json:"exp"`
}

// NewClaimsResponse maps verified claims.
func NewClaimsResponse(c *auth.Claims) ClaimsResponse {
	resp := ClaimsResponse{Sub: c.UserID, Username: c.Username, Role: c.Role}
	if c.IssuedAt != nil {
		resp.IssuedAt = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.Unix()
	}
	return resp
}

// VerifyResponse is returned by the JSON verify endpoint.
type VerifyResponse struct {
	Success bool            `json:"success"`
	Claims  *ClaimsResponse `json:"claims,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SuccessResponse is a bare acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RevokeTokenRequest names one token of one user.
type RevokeTokenRequest struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

// SetRoleRequest changes an account's role.
type SetRoleRequest struct {
	Role domain.Role `json:"role"`
}
