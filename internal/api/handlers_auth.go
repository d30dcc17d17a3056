package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/services"
)

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

// optionalFloat tells an explicit null apart from an absent field.
type optionalFloat struct {
	Set   bool
	Value *float64
}

func (value *optionalFloat) UnmarshalJSON(data []byte) error {
	value.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		value.Value = nil
		return nil
	}
	var parsed float64
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	value.Value = &parsed
	return nil
}

type profileRequest struct {
	MobileNumber *string       `json:"mobile_number"`
	Height       optionalFloat `json:"height"`
	Weight       optionalFloat `json:"weight"`
}

func (request profileRequest) toUpdate() services.ProfileUpdate {
	return services.ProfileUpdate{
		MobileNumber: request.MobileNumber,
		Height:       request.Height.Value,
		Weight:       request.Weight.Value,
		ClearHeight:  request.Height.Set && request.Height.Value == nil,
		ClearWeight:  request.Weight.Set && request.Weight.Value == nil,
	}
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	var request registerRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.authService.Register(services.RegistrationInput{
		Username: request.Username,
		Email:    request.Email,
		Password: request.Password,
	}, handler.now())
	if err != nil {
		return handler.authAPIError(c, err)
	}

	token, err := handler.buildToken(&user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	handler.log.Info("user registered", "user_id", user.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Registration successful",
		"access_token": token,
		"user":         newUserView(user),
	})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	var request loginRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if strings.TrimSpace(request.Email) == "" || request.Password == "" {
		return apiError(c, fiber.StatusBadRequest, "Email and password required")
	}

	now := handler.now()
	limiterKey := loginLimiterKey(c, request.Email)
	if handler.loginLimiter.blocked(limiterKey, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	user, err := handler.authService.Authenticate(request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.fail(limiterKey, now)
		}
		return handler.authAPIError(c, err)
	}
	handler.loginLimiter.clear(limiterKey)

	token, err := handler.buildToken(&user)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(fiber.Map{
		"message":      "Login successful",
		"access_token": token,
		"user":         newUserView(user),
	})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if err := handler.revokeToken(claims); err != nil {
		handler.log.Error("revoke token", "user_id", claims.UserID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to end session")
	}
	return c.JSON(fiber.Map{"message": "Logout successful"})
}

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(newUserView(*user))
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var request profileRequest
	if err := json.Unmarshal(c.Body(), &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	updated, err := handler.accountService.UpdateProfile(user.ID, request.toUpdate())
	if err != nil {
		return handler.authAPIError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    newUserView(updated),
	})
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var request changePasswordRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.accountService.ChangePassword(*user, request.CurrentPassword, request.NewPassword); err != nil {
		return handler.authAPIError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}
