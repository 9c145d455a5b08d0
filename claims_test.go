package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/filmhub/go-auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTClaims(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-id",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:       "user-id",
		TokenKind: auth.TokenKindAccess,
	}

	t.Run("uid wins over subject", func(t *testing.T) {
		assert.Equal(t, "user-id", claims.UserID())
		assert.Equal(t, "subject-id", claims.Subject())
	})

	t.Run("subject is the fallback", func(t *testing.T) {
		bare := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", bare.UserID())
	})

	t.Run("kind predicates", func(t *testing.T) {
		assert.True(t, claims.IsAccess())
		assert.False(t, claims.IsRefresh())
		assert.Equal(t, auth.TokenKindAccess, claims.Kind())

		refresh := &auth.JWTClaims{TokenKind: auth.TokenKindRefresh}
		assert.True(t, refresh.IsRefresh())
		assert.False(t, refresh.IsAccess())
	})

	t.Run("timestamps", func(t *testing.T) {
		assert.Equal(t, now, claims.IssuedAt())
		assert.Equal(t, now.Add(time.Hour), claims.Expires())
	})

	t.Run("zero timestamps for empty claims", func(t *testing.T) {
		empty := &auth.JWTClaims{}
		assert.True(t, empty.Expires().IsZero())
		assert.True(t, empty.IssuedAt().IsZero())
	})
}

func TestJWTClaimsWireFormat(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
		UID:              "abc",
		TokenKind:        auth.TokenKindRefresh,
		Metadata:         map[string]any{"source": "test"},
	}

	raw, err := json.Marshal(claims)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "abc", decoded["uid"])
	assert.Equal(t, "refresh", decoded["knd"])
	assert.Contains(t, decoded, "metadata")

	t.Run("optional fields are omitted", func(t *testing.T) {
		raw, err := json.Marshal(&auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
		})
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.NotContains(t, decoded, "uid")
		assert.NotContains(t, decoded, "knd")
		assert.NotContains(t, decoded, "metadata")
	})
}
