package auth

import (
	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// SessionContext carries the credentials presented by one request and the
// identity resolved from them. It is built per request and discarded after.
type SessionContext struct {
	OpaqueToken string
	SignedToken string

	resolved  bool
	principal *domain.Principal
	claims    *Claims
	err       error
}

// NewSessionContext captures the two session cookies of a request.
func NewSessionContext(opaqueToken, signedToken string) *SessionContext {
	return &SessionContext{OpaqueToken: opaqueToken, SignedToken: signedToken}
}

// HasCredentials reports whether both session cookies were presented.
func (s *SessionContext) HasCredentials() bool {
	return s != nil && s.OpaqueToken != "" && s.SignedToken != ""
}

// IsResolved reports whether Resolve has been called for this request.
func (s *SessionContext) IsResolved() bool {
	return s.resolved
}

// Result returns the memoised outcome of authenticating this request.
func (s *SessionContext) Result() (*domain.Principal, *Claims, error) {
	return s.principal, s.claims, s.err
}

// Resolve records the outcome of authenticating this request.
func (s *SessionContext) Resolve(principal *domain.Principal, claims *Claims, err error) {
	s.resolved = true
	s.principal = principal
	s.claims = claims
	s.err = err
}
