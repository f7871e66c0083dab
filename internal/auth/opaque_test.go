package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := NewOpaqueToken(32)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		_, dup := seen[tok]
		assert.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestNewOpaqueToken_EnforcesEntropyFloor(t *testing.T) {
	tok, err := NewOpaqueToken(4)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, MinOpaqueTokenBytes)
}

func TestTokenDigest(t *testing.T) {
	d := TokenDigest("abc")
	assert.Len(t, d, 64)
	assert.Equal(t, d, TokenDigest("abc"))
	assert.NotEqual(t, d, TokenDigest("abd"))
}
