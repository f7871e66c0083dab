package domain

import "time"

// TokenKind differentiates the two credentials bound to a session.
type TokenKind string

const (
	TokenKindOpaque TokenKind = "opaque"
	TokenKindSigned TokenKind = "signed"
)

// TokenRecord is a persisted, revocable credential. Token holds the digest of
// the raw value, never the raw value itself.
type TokenRecord struct {
	ID        string
	UserID    int64
	Kind      TokenKind
	Token     string
	ExpiresAt time.Time
	IsRevoked bool
	CreatedAt time.Time
}

// Active reports whether the record is usable at now.
func (r TokenRecord) Active(now time.Time) bool {
	return !r.IsRevoked && now.Before(r.ExpiresAt)
}

// SessionPair bundles the opaque and signed credentials issued at login.
type SessionPair struct {
	UserID      int64
	OpaqueToken string
	SignedToken string
	ExpiresAt   time.Time
}

// Principal is the server-side identity bound to an opaque session token.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
