package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our reequest has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// Auth and verification failures carry category, HTTP code, and a stable text
// code so the HTTP layer can branch without string matching.
var (
	// ErrInvalidCredentials covers both unknown email and bad password; the
	// two are never distinguished to avoid user enumeration.
	ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
				WithTextCode("INVALID_CREDENTIALS").
				WithCode(goerrors.CodeBadRequest)

	// ErrMismatchedHashAndPassword wraps the bcrypt comparison failure.
	ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
					WithTextCode("PASSWORD_MISMATCH").
					WithCode(goerrors.CodeUnauthorized)

	// ErrNoEmptyString rejects empty password input before hashing.
	ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
				WithTextCode("EMPTY_PASSWORD").
				WithCode(goerrors.CodeBadRequest)

	// ErrEmailNotVerified means the credentials were correct but the account
	// has not completed email verification.
	ErrEmailNotVerified = goerrors.New("email not verified", goerrors.CategoryAuth).
				WithTextCode("EMAIL_NOT_VERIFIED").
				WithCode(goerrors.CodeForbidden)

	// ErrTokenExpired is returned when a token fails only its expiry check.
	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenMalformed is returned for signature or format failures.
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)

	// ErrTokenRevoked means the token verifies cryptographically but no longer
	// matches the persisted refresh session.
	ErrTokenRevoked = goerrors.New("token has been revoked", goerrors.CategoryAuth).
			WithTextCode("TOKEN_REVOKED").
			WithCode(goerrors.CodeForbidden)

	// ErrVerificationTokenNotFound means no user holds the presented
	// verification token (unknown, consumed, or replaced).
	ErrVerificationTokenNotFound = goerrors.New("invalid or expired verification token", goerrors.CategoryNotFound).
					WithTextCode("VERIFICATION_TOKEN_NOT_FOUND").
					WithCode(goerrors.CodeNotFound)

	// ErrAlreadyVerified is returned when verification is attempted on an
	// account that already completed it.
	ErrAlreadyVerified = goerrors.New("email is already verified", goerrors.CategoryConflict).
				WithTextCode("ALREADY_VERIFIED").
				WithCode(goerrors.CodeBadRequest)

	// ErrUserNotFound is the lookup failure for explicit user reads.
	ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
			WithTextCode("USER_NOT_FOUND").
			WithCode(goerrors.CodeNotFound)

	// ErrDuplicateUser reports a signup conflict without revealing whether the
	// existing account is verified.
	ErrDuplicateUser = goerrors.New("user already exists", goerrors.CategoryConflict).
				WithTextCode("DUPLICATE_USER").
				WithCode(goerrors.CodeConflict)
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
