package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/models"
)

const (
	contextUserKey   = "current_user"
	contextClaimsKey = "current_claims"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func currentClaims(c *fiber.Ctx) (*authClaims, bool) {
	claims, ok := c.Locals(contextClaimsKey).(*authClaims)
	return claims, ok
}
