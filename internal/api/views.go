package api

import (
	"github.com/terraincognita07/fittrack/internal/models"
	"github.com/terraincognita07/fittrack/internal/services"
)

type userView struct {
	ID                 uint     `json:"id"`
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	Role               string   `json:"role"`
	MobileNumber       string   `json:"mobile_number"`
	Height             *float64 `json:"height"`
	Weight             *float64 `json:"weight"`
	MustChangePassword bool     `json:"must_change_password"`
	CreatedAt          string   `json:"created_at"`
}

func newUserView(user models.User) userView {
	return userView{
		ID:                 user.ID,
		Username:           user.Username,
		Email:              user.Email,
		Role:               user.Role,
		MobileNumber:       user.MobileNumber,
		Height:             user.Height,
		Weight:             user.Weight,
		MustChangePassword: user.MustChangePassword,
		CreatedAt:          formatTimestamp(user.CreatedAt),
	}
}

type challengeView struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Duration      string `json:"duration"`
	Difficulty    string `json:"difficulty"`
	Goal          string `json:"goal"`
	Description   string `json:"description"`
	IsAIGenerated bool   `json:"is_ai_generated"`
	CreatedAt     string `json:"created_at"`
}

func newChallengeView(challenge models.Challenge) challengeView {
	return challengeView{
		ID:            challenge.ID,
		Title:         challenge.Title,
		Type:          challenge.Type,
		Duration:      challenge.Duration,
		Difficulty:    challenge.Difficulty,
		Goal:          challenge.Goal,
		Description:   challenge.Description,
		IsAIGenerated: challenge.IsAIGenerated,
		CreatedAt:     formatTimestamp(challenge.CreatedAt),
	}
}

// catalogEntryView is one row of GET /api/challenges.
type catalogEntryView struct {
	challengeView
	IsJoined     bool    `json:"is_joined"`
	Progress     float64 `json:"progress"`
	IsCompleted  bool    `json:"is_completed"`
	CanMarkToday bool    `json:"can_mark_today"`
}

func newCatalogEntryView(entry services.CatalogEntry) catalogEntryView {
	view := catalogEntryView{
		challengeView: newChallengeView(entry.Challenge),
		CanMarkToday:  entry.CanMarkToday,
	}
	if entry.Enrollment != nil {
		view.IsJoined = true
		view.Progress = entry.Enrollment.ProgressPercentage
		view.IsCompleted = entry.Enrollment.Completed
	}
	return view
}

// enrollmentView is one row of GET /api/challenges/my-challenges. ID is the challenge id.
type enrollmentView struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Duration     string  `json:"duration"`
	Difficulty   string  `json:"difficulty"`
	Goal         string  `json:"goal"`
	Description  string  `json:"description"`
	Progress     float64 `json:"progress"`
	IsCompleted  bool    `json:"is_completed"`
	CanMarkToday bool    `json:"can_mark_today"`
	JoinedAt     string  `json:"joined_at"`
	CompletedAt  *string `json:"completed_at"`
}

func newEnrollmentView(view services.EnrollmentView) enrollmentView {
	return enrollmentView{
		ID:           view.Challenge.ID,
		Title:        view.Challenge.Title,
		Type:         view.Challenge.Type,
		Duration:     view.Challenge.Duration,
		Difficulty:   view.Challenge.Difficulty,
		Goal:         view.Challenge.Goal,
		Description:  view.Challenge.Description,
		Progress:     view.Enrollment.ProgressPercentage,
		IsCompleted:  view.Enrollment.Completed,
		CanMarkToday: view.CanMarkToday,
		JoinedAt:     formatTimestamp(view.Enrollment.JoinedAt),
		CompletedAt:  formatOptionalTimestamp(view.Enrollment.CompletedAt),
	}
}

type joinedView struct {
	ID          uint    `json:"id"`
	ChallengeID uint    `json:"challenge_id"`
	Progress    float64 `json:"progress"`
	JoinedAt    string  `json:"joined_at"`
}

type historyEntryView struct {
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
}

func newHistoryViews(marks []models.ProgressMark) []historyEntryView {
	views := make([]historyEntryView, 0, len(marks))
	for _, mark := range marks {
		views = append(views, historyEntryView{
			Date:      services.FormatCalendarDate(mark.ProgressDate),
			CreatedAt: formatTimestamp(mark.CreatedAt),
		})
	}
	return views
}
