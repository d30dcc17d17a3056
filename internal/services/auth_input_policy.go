package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var (
	ErrAuthCredentialsInvalid = errors.New("auth credentials invalid")
	ErrAuthEmailInvalid       = errors.New("auth email invalid")
	ErrAuthUsernameInvalid    = errors.New("auth username invalid")
)

const (
	maxEmailLength    = 120
	minUsernameLength = 3
	maxUsernameLength = 80
)

var usernameFormatRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return ""
	}
	// Display-name forms such as "Ann <ann@example.com>" parse but are not stored.
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return ""
	}
	return email
}

func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	length := len([]rune(username))
	if length < minUsernameLength || length > maxUsernameLength {
		return "", ErrAuthUsernameInvalid
	}
	if !usernameFormatRegex.MatchString(username) {
		return "", ErrAuthUsernameInvalid
	}
	return username, nil
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	password := strings.TrimSpace(passwordRaw)
	if email == "" || password == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return email, password, nil
}
