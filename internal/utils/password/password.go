// Package password provides the salted password digest used by the
// two-phase login: the salt is stored next to the digest and handed out
// before authentication, so the digest function must take it explicitly.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	iterations = 4096
	keyLength  = 32
)

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives the digest for a password under the given salt. The same
// (password, salt) pair always yields the same digest.
func Hash(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
}
