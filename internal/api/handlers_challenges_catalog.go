package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/ai"
	"github.com/terraincognita07/fittrack/internal/services"
)

type challengeRequest struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Duration    string `json:"duration"`
	Difficulty  string `json:"difficulty"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
}

func (request challengeRequest) toInput() services.ChallengeInput {
	return services.ChallengeInput{
		Title:       request.Title,
		Type:        request.Type,
		Duration:    request.Duration,
		Difficulty:  request.Difficulty,
		Goal:        request.Goal,
		Description: request.Description,
	}
}

// looseString accepts a JSON string or number; clients send age and weight either way.
type looseString string

func (value *looseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*value = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*value = looseString(strings.TrimSpace(text))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*value = looseString(number.String())
	return nil
}

type generateRequest struct {
	Age           looseString `json:"age"`
	Gender        looseString `json:"gender"`
	Weight        looseString `json:"weight"`
	Height        looseString `json:"height"`
	ActivityLevel looseString `json:"activity_level"`
	Goal          looseString `json:"goal"`
}

func (handler *Handler) CreateChallenge(c *fiber.Ctx) error {
	var request challengeRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	challenge, err := handler.catalogService.Create(request.toInput(), handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Challenge created successfully",
		"challenge": newChallengeView(challenge),
	})
}

func (handler *Handler) UpdateChallenge(c *fiber.Ctx) error {
	challengeID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not found")
	}
	var request challengeRequest
	if err := c.BodyParser(&request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	challenge, err := handler.catalogService.Update(challengeID, request.toInput())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":   "Challenge updated successfully",
		"challenge": newChallengeView(challenge),
	})
}

func (handler *Handler) DeleteChallenge(c *fiber.Ctx) error {
	challengeID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not found")
	}
	if err := handler.catalogService.Delete(challengeID); err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Challenge deleted successfully"})
}

func (handler *Handler) GenerateChallenges(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !handler.generateLimiter.allow(user.ID, handler.now()) {
		return apiError(c, fiber.StatusTooManyRequests, "too many generate requests")
	}

	var request generateRequest
	if body := c.Body(); len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &request); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid input")
		}
	}

	// Stored measurements win over the request body.
	profile := ai.Profile{
		Age:           string(request.Age),
		Gender:        string(request.Gender),
		Weight:        measurementOr(user.Weight, string(request.Weight)),
		Height:        measurementOr(user.Height, string(request.Height)),
		ActivityLevel: string(request.ActivityLevel),
		Goal:          string(request.Goal),
	}

	challenges, source, err := handler.catalogService.SeedSuggestions(c.UserContext(), profile, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	views := make([]challengeView, 0, len(challenges))
	for _, challenge := range challenges {
		views = append(views, newChallengeView(challenge))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Challenges generated successfully",
		"source":     source,
		"challenges": views,
	})
}

func measurementOr(stored *float64, fallback string) string {
	if stored != nil && *stored > 0 {
		return strconv.FormatFloat(*stored, 'f', -1, 64)
	}
	return fallback
}
