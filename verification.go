package auth

import (
	"context"
)

// VerificationState is the lifecycle state of an account's email.
type VerificationState string

const (
	// VerificationStateUnverified means a token is outstanding.
	VerificationStateUnverified VerificationState = "unverified"
	// VerificationStateVerified is terminal.
	VerificationStateVerified VerificationState = "verified"
)

var verificationTransitions = map[VerificationState]map[VerificationState]struct{}{
	VerificationStateUnverified: {
		VerificationStateVerified: {},
	},
}

// CanTransitionVerification reports whether the state change is allowed.
// Verified is terminal, re-verifying is a conflict not a no-op.
func CanTransitionVerification(from, to VerificationState) bool {
	allowed, ok := verificationTransitions[from]
	if !ok {
		return false
	}
	_, exists := allowed[to]
	return exists
}

// UserVerificationState derives the state from the persisted record.
func UserVerificationState(user *User) VerificationState {
	if user == nil {
		return ""
	}
	if user.EmailVerified {
		return VerificationStateVerified
	}
	return VerificationStateUnverified
}

// VerificationStatus is the poll response for clients waiting on the signup
// page.
type VerificationStatus struct {
	IsVerified bool   `json:"isVerified"`
	Message    string `json:"message"`
}

// VerificationChecker reads verification state for polling clients.
type VerificationChecker struct {
	users Users
}

func NewVerificationChecker(users Users) *VerificationChecker {
	return &VerificationChecker{users: users}
}

// CheckStatus returns the verification status for the given email, or
// ErrUserNotFound when no account exists.
func (c *VerificationChecker) CheckStatus(ctx context.Context, email string) (*VerificationStatus, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	status := &VerificationStatus{IsVerified: user.EmailVerified}
	if user.EmailVerified {
		status.Message = "User has verified their account"
	} else {
		status.Message = "User has not verified their account"
	}

	return status, nil
}
