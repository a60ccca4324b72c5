package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRefreshToken(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, RefreshTokenPrefix))
	assert.Equal(t, hashToken(raw), hash)

	other, _, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	user := &User{ID: 42, Email: "a@example.com"}

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := issuer.Issue(user, "sess-1")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

		claims, err := issuer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "sess-1", claims.SessionID)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("expired", func(t *testing.T) {
		past, err := NewTokenIssuer(testSecret, time.Minute)
		require.NoError(t, err)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.Issue(user, "sess-1")
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenIssuer("another-secret-0123456789", time.Minute)
		require.NoError(t, err)
		token, _, err := other.Issue(user, "sess-1")
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("short secret rejected", func(t *testing.T) {
		_, err := NewTokenIssuer("short", time.Minute)
		assert.Error(t, err)
	})
}
