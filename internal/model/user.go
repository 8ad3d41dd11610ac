package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account. In multi-tenant mode its ID is also the tenant key.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateUsername rejects empty names and names with surrounding whitespace.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username required")
	}
	if strings.TrimSpace(username) != username {
		return fmt.Errorf("username must not start or end with whitespace")
	}
	if len(username) > 150 {
		return fmt.Errorf("username too long")
	}
	return nil
}
