package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              string         `bun:"name,notnull" json:"name,omitempty"`
	Email             string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string         `bun:"password_hash" json:"-"`
	EmailVerified     bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	VerificationToken *string        `bun:"verification_token,nullzero" json:"-"`
	VerifiedAt        *time.Time     `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	LoggedInAt        *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata          map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt         *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = val
	return u
}

// RefreshSession tracks the single live refresh token for a user. Login
// replaces the row, logout deletes it, so at most one refresh token per user
// is ever honored.
type RefreshSession struct {
	bun.BaseModel `bun:"table:refresh_sessions,alias:rsess"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Token         string     `bun:"token,notnull" json:"-"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// VerificationTokenBytes is the entropy of an email verification token. The
// hex encoding doubles it on the wire.
const VerificationTokenBytes = 32

// NewVerificationToken generates a random, URL safe verification token.
func NewVerificationToken() (string, error) {
	buf := make([]byte, VerificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
