package services

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var ErrWeakPassword = errors.New("weak password")

const (
	minPasswordRunes = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var requiredPasswordClasses = []func(rune) bool{
	unicode.IsUpper,
	unicode.IsLower,
	unicode.IsDigit,
}

// ValidatePasswordStrength requires at least 8 characters, at most 72 bytes, an upper case
// letter, a lower case letter and a digit.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}

	for _, inClass := range requiredPasswordClasses {
		if !containsRuneWhere(password, inClass) {
			return ErrWeakPassword
		}
	}
	return nil
}

func containsRuneWhere(value string, match func(rune) bool) bool {
	for _, char := range value {
		if match(char) {
			return true
		}
	}
	return false
}
