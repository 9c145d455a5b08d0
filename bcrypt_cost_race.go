//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race-enabled runs hash a lot of throwaway passwords; keep the cost low
	// so the suite fits in CI timeouts.
	return bcrypt.DefaultCost
}
