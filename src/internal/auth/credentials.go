// FILE: src/internal/auth/credentials.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinTokenBytes = 16
	MaxTokenBytes = 512
)

// HashPassword returns a bcrypt hash suitable for password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateToken returns length random bytes as unpadded URL-safe base64.
func GenerateToken(length int) (string, error) {
	if length <= 0 || length > MaxTokenBytes {
		return "", fmt.Errorf("token length must be between 1 and %d bytes", MaxTokenBytes)
	}

	token := make([]byte, length)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(token), nil
}
