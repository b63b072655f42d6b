package validation

import (
	"errors"
	"strings"
)

const (
	maxEmailLen    = 254
	minPasswordLen = 12
	maxPasswordLen = 72 // bcrypt ignores anything past 72 bytes
)

var (
	ErrEmailRequired     = errors.New("email address is required")
	ErrEmailTooLong      = errors.New("email address is too long")
	ErrEmailFormat       = errors.New("invalid email address format")
	ErrPasswordTooShort  = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong   = errors.New("password must not exceed 72 characters")
	ErrPasswordTooCommon = errors.New("password is too common, please choose a stronger one")
)

var commonPasswordParts = []string{
	"password", "123456", "qwerty", "letmein", "welcome",
	"admin", "iloveyou", "codekeeper", "combination",
}

// ValidateEmail checks length, then the address format with validator's email rule.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return ErrEmailRequired
	case len(email) > maxEmailLen:
		return ErrEmailTooLong
	}

	if err := validate.Var(email, "email"); err != nil {
		return ErrEmailFormat
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLen {
		return ErrPasswordTooLong
	}

	lower := strings.ToLower(password)
	for _, part := range commonPasswordParts {
		if strings.Contains(lower, part) {
			return ErrPasswordTooCommon
		}
	}
	return nil
}
