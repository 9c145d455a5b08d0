package auth_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/filmhub/go-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Wrapped token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      auth.ErrIdentityNotFound,
			expected: false,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsTokenExpiredError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured malformed error",
			err:      auth.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Legacy missing JWT error (string match)",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "Token expired error",
			err:      auth.ErrTokenExpired,
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsMalformedError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrInvalidCredentials", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrInvalidCredentials.Category)
		assert.Equal(t, "INVALID_CREDENTIALS", auth.ErrInvalidCredentials.TextCode)
		assert.Equal(t, "invalid email or password", auth.ErrInvalidCredentials.Message)
	})

	t.Run("ErrEmailNotVerified", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrEmailNotVerified.Category)
		assert.Equal(t, "EMAIL_NOT_VERIFIED", auth.ErrEmailNotVerified.TextCode)
		assert.Equal(t, goerrors.CodeForbidden, auth.ErrEmailNotVerified.Code)
	})

	t.Run("ErrTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrTokenExpired.Category)
		assert.Equal(t, "TOKEN_EXPIRED", auth.ErrTokenExpired.TextCode)
		assert.Equal(t, goerrors.CodeUnauthorized, auth.ErrTokenExpired.Code)
	})

	t.Run("ErrTokenRevoked", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrTokenRevoked.Category)
		assert.Equal(t, "TOKEN_REVOKED", auth.ErrTokenRevoked.TextCode)
		assert.Equal(t, goerrors.CodeForbidden, auth.ErrTokenRevoked.Code)
	})

	t.Run("ErrVerificationTokenNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, auth.ErrVerificationTokenNotFound.Category)
		assert.Equal(t, "invalid or expired verification token", auth.ErrVerificationTokenNotFound.Message)
	})

	t.Run("ErrAlreadyVerified", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, auth.ErrAlreadyVerified.Category)
		assert.Equal(t, goerrors.CodeBadRequest, auth.ErrAlreadyVerified.Code)
	})

	t.Run("ErrDuplicateUser", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, auth.ErrDuplicateUser.Category)
		assert.Equal(t, "user already exists", auth.ErrDuplicateUser.Message)
	})

	t.Run("ErrNoEmptyString", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, auth.ErrNoEmptyString.Category)
		assert.Equal(t, "EMPTY_PASSWORD", auth.ErrNoEmptyString.TextCode)
	})
}

func TestErrorMatchingThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("login failed: %w", auth.ErrEmailNotVerified)
	assert.True(t, goerrors.Is(wrapped, auth.ErrEmailNotVerified))
	assert.False(t, goerrors.Is(wrapped, auth.ErrInvalidCredentials))
}
