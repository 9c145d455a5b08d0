package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes the two token classes minted by the service.
type TokenKind = string

const (
	// TokenKindAccess is the short lived token presented on every request
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long lived token used only to mint new access tokens
	TokenKindRefresh TokenKind = "refresh"
)

// AuthClaims represents structured JWT claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Kind() TokenKind
	IsAccess() bool
	IsRefresh() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string         `json:"uid,omitempty"`
	TokenKind TokenKind      `json:"knd,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Kind returns the token kind claim
func (c *JWTClaims) Kind() TokenKind {
	return c.TokenKind
}

// IsAccess reports whether this is an access token
func (c *JWTClaims) IsAccess() bool {
	return c.TokenKind == TokenKindAccess
}

// IsRefresh reports whether this is a refresh token
func (c *JWTClaims) IsRefresh() bool {
	return c.TokenKind == TokenKindRefresh
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
