package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// MinOpaqueTokenBytes is the entropy floor for opaque session tokens.
const MinOpaqueTokenBytes = 16

// NewOpaqueToken returns a random base64url (unpadded) session handle.
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes < MinOpaqueTokenBytes {
		nBytes = MinOpaqueTokenBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenDigest is the storage form of a raw token: 64 hex chars of SHA-256.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
