package auth_test

import (
	"context"
	"testing"

	"github.com/filmhub/go-auth"
	"github.com/filmhub/go-auth/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextEnricherAdapter(t *testing.T) {
	claims := &auth.JWTClaims{UID: "user-1", TokenKind: auth.TokenKindAccess}

	ctx := auth.ContextEnricherAdapter(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID())
}

type foreignClaims struct{}

func (foreignClaims) Subject() string { return "x" }
func (foreignClaims) UserID() string  { return "x" }
func (foreignClaims) Kind() string    { return "access" }

func TestContextEnricherAdapterIgnoresForeignClaims(t *testing.T) {
	ctx := auth.ContextEnricherAdapter(context.Background(), foreignClaims{})

	_, ok := auth.GetClaims(ctx)
	assert.False(t, ok)
}

func TestRegisterValidationListeners(t *testing.T) {
	cfg := &jwtware.Config{}

	listener := func(ctx router.Context, claims jwtware.AuthClaims) error { return nil }

	auth.RegisterValidationListeners(nil, listener)

	auth.RegisterValidationListeners(cfg)
	assert.Empty(t, cfg.ValidationListeners)

	auth.RegisterValidationListeners(cfg, listener, listener)
	assert.Len(t, cfg.ValidationListeners, 2)
}
