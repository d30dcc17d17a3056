package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) requestScope(c *fiber.Ctx) (uint, uint, bool) {
	user, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	challengeID, ok := parseIDParam(c, "id")
	if !ok {
		return user.ID, 0, false
	}
	return user.ID, challengeID, true
}

func (handler *Handler) ListChallenges(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	entries, err := handler.progressService.Overview(user.ID, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	views := make([]catalogEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newCatalogEntryView(entry))
	}
	return c.JSON(fiber.Map{"challenges": views})
}

func (handler *Handler) GetChallenge(c *fiber.Ctx) error {
	userID, challengeID, ok := handler.requestScope(c)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not found")
	}

	challenge, err := handler.catalogService.Get(challengeID)
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	canMark, err := handler.progressService.CanMarkToday(userID, challengeID, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{
		"challenge":      newChallengeView(challenge),
		"can_mark_today": canMark,
	})
}

func (handler *Handler) MyChallenges(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	enrollments, err := handler.progressService.ListForUser(user.ID, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	views := make([]enrollmentView, 0, len(enrollments))
	for _, entry := range enrollments {
		views = append(views, newEnrollmentView(entry))
	}
	return c.JSON(fiber.Map{"challenges": views})
}

func (handler *Handler) JoinChallenge(c *fiber.Ctx) error {
	userID, challengeID, ok := handler.requestScope(c)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not found")
	}

	enrollment, err := handler.progressService.Join(userID, challengeID, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Challenge joined successfully",
		"user_challenge": joinedView{
			ID:          enrollment.ID,
			ChallengeID: enrollment.ChallengeID,
			Progress:    enrollment.ProgressPercentage,
			JoinedAt:    formatTimestamp(enrollment.JoinedAt),
		},
	})
}

func (handler *Handler) MarkProgress(c *fiber.Ctx) error {
	userID, challengeID, ok := handler.requestScope(c)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not joined")
	}

	result, err := handler.progressService.MarkProgress(c.UserContext(), userID, challengeID, handler.now())
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Progress marked successfully",
		"progress":       result.Progress,
		"is_completed":   result.Completed,
		"already_marked": false,
	})
}

func (handler *Handler) ProgressHistory(c *fiber.Ctx) error {
	userID, challengeID, ok := handler.requestScope(c)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not joined")
	}

	marks, err := handler.progressService.History(userID, challengeID)
	if err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{
		"challenge_id":     challengeID,
		"progress_history": newHistoryViews(marks),
	})
}

func (handler *Handler) LeaveChallenge(c *fiber.Ctx) error {
	userID, challengeID, ok := handler.requestScope(c)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "Challenge not joined")
	}

	if err := handler.progressService.Leave(userID, challengeID); err != nil {
		return handler.challengeAPIError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left challenge successfully"})
}
