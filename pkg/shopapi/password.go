package shopapi

import (
	"errors"
	"strings"
	"unicode"
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

// validatePassword enforces the account password policy: at least 8
// characters with an upper-case letter, a lower-case letter, a digit, and a
// special character.
func validatePassword(pw string) error {
	if len(pw) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return errors.New("password must contain an upper-case letter")
	case !lower:
		return errors.New("password must contain a lower-case letter")
	case !digit:
		return errors.New("password must contain a digit")
	case !special:
		return errors.New("password must contain a special character")
	}
	return nil
}
