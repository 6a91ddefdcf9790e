package session

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier decides whether a secret supplied at login is the expected one.
type Verifier interface {
	Verify(supplied string) bool
}

// PlainSecret compares against a plaintext shared secret in constant time.
// An empty PlainSecret never matches.
type PlainSecret string

func (s PlainSecret) Verify(supplied string) bool {
	if s == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s)) == 1
}

// HashedSecret is a bcrypt hash of the shared secret.
type HashedSecret string

func (h HashedSecret) Verify(supplied string) bool {
	if h == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h), []byte(supplied)) == nil
}

// HashSecret produces a value suitable for auth.secret_hash.
func HashSecret(secret string) (HashedSecret, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return HashedSecret(hash), nil
}

// NewVerifier prefers the bcrypt hash when both forms are configured.
func NewVerifier(secret, secretHash string) Verifier {
	if secretHash != "" {
		return HashedSecret(secretHash)
	}
	return PlainSecret(secret)
}
