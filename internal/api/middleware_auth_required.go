package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/services"
)

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, claims, err := handler.authenticateRequest(c)
	if err != nil {
		if errors.Is(err, services.ErrStorageFailure) {
			handler.log.Error("authenticate request", "error", err)
			return apiError(c, fiber.StatusInternalServerError, "internal server error")
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	c.Locals(contextUserKey, user)
	c.Locals(contextClaimsKey, claims)
	return c.Next()
}
