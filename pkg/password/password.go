// Package password hashes and verifies admin passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for stored hashes.
const DefaultCost = bcrypt.DefaultCost

// ErrEmpty is returned when hashing an empty password.
var ErrEmpty = errors.New("password: empty password")

// dummyHash is compared against when the account does not exist so that an
// unknown email costs the same as a wrong password.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoO5dFXQz8JRzS9Wc5p3pA3bX1u3ZWZpHe")

// Hash returns the bcrypt hash of plain. A cost below bcrypt.MinCost uses
// DefaultCost.
func Hash(plain string, cost int) (string, error) {
	if plain == "" {
		return "", ErrEmpty
	}
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plain matches hash.
func Verify(hash, plain string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
