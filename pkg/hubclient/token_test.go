package hubclient

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestIsTokenUsable(t *testing.T) {
	now := time.Now()

	t.Run("ValidUnexpiredToken", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"user_id": "u1",
			"exp":     now.Add(time.Hour).Unix(),
		})
		require.True(t, IsTokenUsable(token))
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"user_id": "u1",
			"exp":     now.Add(-time.Hour).Unix(),
		})
		require.False(t, IsTokenUsable(token))
	})

	t.Run("TokenWithoutExpiry", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"user_id": "u1"})
		require.True(t, IsTokenUsable(token))
	})

	t.Run("BearerPrefixStripped", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{
			"user_id": "u1",
			"exp":     now.Add(time.Hour).Unix(),
		})
		require.True(t, IsTokenUsable("Bearer "+token))
	})

	t.Run("EmptyString", func(t *testing.T) {
		require.False(t, IsTokenUsable(""))
	})

	t.Run("Garbage", func(t *testing.T) {
		require.False(t, IsTokenUsable("not-a-token"))
		require.False(t, IsTokenUsable("a.b"))
		require.False(t, IsTokenUsable("!!!.???.###"))
	})
}

func TestIsTokenUsableAt(t *testing.T) {
	deadline := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"user_id": "u1",
		"exp":     deadline.Unix(),
	})

	require.True(t, IsTokenUsableAt(token, deadline.Add(-time.Minute)))
	require.False(t, IsTokenUsableAt(token, deadline.Add(time.Minute)))
}
