package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/spec-kit/fungi-catalog/internal/domain"
)

// UserLookup is the read side of the user store needed to check credentials.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// CredentialVerifier checks submitted username/password pairs.
type CredentialVerifier struct {
	users UserLookup

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialVerifier constructs a verifier over the user store.
func NewCredentialVerifier(users UserLookup) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify returns the matching user without its password hash, or nil when the
// username is unknown or the password does not match. A non-nil error means
// the store could not be read.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, nil
	}

	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Burn a comparison so unknown usernames cost the same as bad passwords.
			_ = bcrypt.CompareHashAndPassword(v.placeholderHash(), []byte(password))
			return nil, nil
		}
		return nil, err
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil
	}
	return user.Public(), nil
}

func (v *CredentialVerifier) placeholderHash() []byte {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.DefaultCost)
	})
	return v.dummyHash
}

// NormalizeUsername trims surrounding space and applies Unicode NFC.
// Usernames stay case-sensitive.
func NormalizeUsername(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeEmail trims, lower-cases and applies Unicode NFC.
func NormalizeEmail(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}
