package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/memorylane/internal/common"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

const minPasswordLength = 6

// NormalizeEmail lowercases and trims an address. Emails are compared in
// this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address is present and well formed.
func ValidateEmail(email string) error {
	if email == "" {
		return common.NewValidationError("email", "is required")
	}
	if !emailRe.MatchString(email) {
		return common.NewValidationError("email", "is malformed")
	}
	return nil
}

// ValidatePassword requires at least six characters including a digit,
// a lowercase and an uppercase letter.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return common.NewValidationError("password", "must have at least 6 characters")
	}
	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	if !digit || !lower || !upper {
		return common.NewValidationError("password", "must contain a number, a lowercase and an uppercase letter")
	}
	return nil
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// CheckPassword reports whether password matches hash. A mismatch is not an
// error; any other bcrypt failure is.
func CheckPassword(hash []byte, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
