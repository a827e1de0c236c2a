package security

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordChecker verifies the shared board password against a bcrypt hash
type PasswordChecker struct {
	hash []byte
}

// NewPasswordChecker hashes password, or adopts it as is when it already is a
// bcrypt hash. An empty password yields a checker that rejects everything.
func NewPasswordChecker(password string, cost int) (*PasswordChecker, error) {
	if password == "" {
		return &PasswordChecker{}, nil
	}
	if isBcryptHash(password) {
		if _, err := bcrypt.Cost([]byte(password)); err != nil {
			return nil, err
		}
		return &PasswordChecker{hash: []byte(password)}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordChecker{hash: hash}, nil
}

// Enabled reports whether a password is configured
func (c *PasswordChecker) Enabled() bool {
	return c != nil && len(c.hash) > 0
}

// Check reports whether password matches
func (c *PasswordChecker) Check(password string) bool {
	if !c.Enabled() {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
