package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/services"
)

const isoTimestampLayout = time.RFC3339

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Params(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// challengeAPIError maps progress and catalog outcomes onto HTTP statuses.
// Expected client outcomes are not logged.
func (handler *Handler) challengeAPIError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrChallengeNotFound):
		return apiError(c, fiber.StatusNotFound, "Challenge not found")
	case errors.Is(err, services.ErrNotEnrolled):
		return apiError(c, fiber.StatusNotFound, "Challenge not joined")
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return apiError(c, fiber.StatusBadRequest, "Already joined this challenge")
	case errors.Is(err, services.ErrAlreadyCompleted):
		return apiError(c, fiber.StatusBadRequest, "Challenge already completed")
	case errors.Is(err, services.ErrAlreadyMarkedToday):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          "Progress already marked for today",
			"already_marked": true,
		})
	case errors.Is(err, services.ErrChallengeInvalid):
		return apiError(c, fiber.StatusBadRequest, "Challenge title is required")
	default:
		handler.log.Error("challenge request failed", "path", c.Path(), "error", err)
		return apiError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func (handler *Handler) authAPIError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return apiError(c, fiber.StatusConflict, "Email already registered")
	case errors.Is(err, services.ErrUsernameTaken):
		return apiError(c, fiber.StatusConflict, "Username already taken")
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		return apiError(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrAuthEmailInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid email")
	case errors.Is(err, services.ErrAuthUsernameInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid username")
	case errors.Is(err, services.ErrWeakPassword):
		return apiError(c, fiber.StatusBadRequest, "weak password")
	case errors.Is(err, services.ErrPasswordChangeInvalidInput):
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	case errors.Is(err, services.ErrInvalidCurrentPassword):
		return apiError(c, fiber.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, services.ErrNewPasswordMustDiffer):
		return apiError(c, fiber.StatusBadRequest, "new password must differ")
	case errors.Is(err, services.ErrProfileInvalid):
		return apiError(c, fiber.StatusBadRequest, "invalid profile values")
	case errors.Is(err, services.ErrUserNotFound):
		return apiError(c, fiber.StatusNotFound, "User not found")
	default:
		handler.log.Error("auth request failed", "path", c.Path(), "error", err)
		return apiError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(isoTimestampLayout)
}

func formatOptionalTimestamp(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := formatTimestamp(*value)
	return &formatted
}
