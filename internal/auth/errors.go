package auth

import "errors"

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and unexpected claims.
	// Callers must not be able to tell these cases apart.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned for a correctly signed token past its exp claim.
	ErrTokenExpired = errors.New("token expired")

	// ErrNotAuthenticated means the cookies do not form a live session: a
	// missing, unbound or revoked token.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// IsRejection reports whether err is a verdict on the presented credentials
// rather than a failure to reach the session store.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired)
}
