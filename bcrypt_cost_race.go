//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// race builds hash with the library default so the test suite stays fast
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
