// Package cli holds the operator commands that run against the same database as the server.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/terraincognita07/fittrack/internal/models"
	"github.com/terraincognita07/fittrack/internal/security"
	"github.com/terraincognita07/fittrack/internal/services"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// UserAdmin is the slice of the auth service the operator commands need.
type UserAdmin interface {
	FindByEmail(email string) (models.User, error)
	ResetPassword(userID uint, password string) error
	PromoteToAdmin(userID uint) error
}

// PasswordPrompt asks the operator for a secret. A nil prompt means a temporary password is generated.
type PasswordPrompt func(label string) (string, error)

func RunResetPasswordCommand(users UserAdmin, email string, prompt PasswordPrompt, out io.Writer) error {
	user, err := lookupUser(users, email)
	if err != nil {
		return err
	}

	password, generated, err := choosePassword(prompt)
	if err != nil {
		return err
	}
	if err := users.ResetPassword(user.ID, password); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintln(out, "Password reset successful")
	if generated {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
	}
	fmt.Fprintln(out, "User must change password on next login.")
	return nil
}

func RunPromoteAdminCommand(users UserAdmin, email string, out io.Writer) error {
	user, err := lookupUser(users, email)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		fmt.Fprintf(out, "%s is already an admin\n", user.Email)
		return nil
	}
	if err := users.PromoteToAdmin(user.ID); err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	fmt.Fprintf(out, "%s promoted to admin\n", user.Email)
	return nil
}

func lookupUser(users UserAdmin, email string) (models.User, error) {
	if strings.TrimSpace(email) == "" {
		return models.User{}, errors.New("email is required")
	}
	user, err := users.FindByEmail(email)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, services.ErrAuthEmailInvalid):
		return models.User{}, fmt.Errorf("invalid email address %q", email)
	case errors.Is(err, services.ErrUserNotFound):
		return models.User{}, fmt.Errorf("user %s not found", strings.ToLower(strings.TrimSpace(email)))
	default:
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
}

func choosePassword(prompt PasswordPrompt) (string, bool, error) {
	if prompt == nil {
		password, err := generateTemporaryPassword(12)
		if err != nil {
			return "", false, fmt.Errorf("generate temporary password: %w", err)
		}
		return password, true, nil
	}

	password, err := prompt("New password: ")
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	if err := services.ValidatePasswordStrength(password); err != nil {
		return "", false, err
	}
	confirmation, err := prompt("Repeat password: ")
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	if confirmation != password {
		return "", false, ErrPasswordMismatch
	}
	return password, false, nil
}

func generateTemporaryPassword(length int) (string, error) {
	return security.Password(length)
}
