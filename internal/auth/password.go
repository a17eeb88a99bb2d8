package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor used for every stored credential.
const HashCost = 12

// HashPassword returns the bcrypt digest of password. The digest embeds
// the random salt and the cost, so it is the only value that needs to be
// persisted.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword reports whether password matches the stored digest.
// Malformed digests yield false, never an error: a corrupt credential
// entry must fail closed.
func VerifyPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
