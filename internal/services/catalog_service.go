package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/fittrack/internal/ai"
	"github.com/terraincognita07/fittrack/internal/logger"
	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
)

const (
	SuggestionSourceModel    = "model"
	SuggestionSourceFallback = "fallback"
)

type CatalogChallengeRepository interface {
	FindByID(challengeID uint) (models.Challenge, error)
	List() ([]models.Challenge, error)
	Create(challenge *models.Challenge) error
	CreateBatch(challenges []models.Challenge) error
	Save(challenge *models.Challenge) error
	Delete(challengeID uint) error
}

type ChallengeSuggester interface {
	Suggest(ctx context.Context, profile ai.Profile) ([]ai.Suggestion, error)
}

type SuggestionRecorder interface {
	RecordSuggestions(source string)
}

type ChallengeInput struct {
	Title       string
	Type        string
	Duration    string
	Difficulty  string
	Goal        string
	Description string
}

type CatalogService struct {
	challenges CatalogChallengeRepository
	suggester  ChallengeSuggester
	recorder   SuggestionRecorder
	log        *logger.Logger
}

// NewCatalogService accepts a nil suggester; seeding then always uses the default challenges.
func NewCatalogService(challenges CatalogChallengeRepository, suggester ChallengeSuggester, recorder SuggestionRecorder, log *logger.Logger) *CatalogService {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogService{
		challenges: challenges,
		suggester:  suggester,
		recorder:   recorder,
		log:        log,
	}
}

func (service *CatalogService) Get(challengeID uint) (models.Challenge, error) {
	challenge, err := service.challenges.FindByID(challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return models.Challenge{}, storageFailure("load challenge", err)
	}
	return challenge, nil
}

func (service *CatalogService) List() ([]models.Challenge, error) {
	challenges, err := service.challenges.List()
	if err != nil {
		return nil, storageFailure("list challenges", err)
	}
	return challenges, nil
}

func (service *CatalogService) Create(input ChallengeInput, now time.Time) (models.Challenge, error) {
	input = normalizeChallengeInput(input)
	if input.Title == "" {
		return models.Challenge{}, ErrChallengeInvalid
	}

	challenge := models.Challenge{CreatedAt: now.UTC()}
	applyChallengeInput(&challenge, input)
	if err := service.challenges.Create(&challenge); err != nil {
		return models.Challenge{}, storageFailure("create challenge", err)
	}
	return challenge, nil
}

// Update replaces the editable fields. Existing enrollments keep their progress; future marks
// use the new duration.
func (service *CatalogService) Update(challengeID uint, input ChallengeInput) (models.Challenge, error) {
	input = normalizeChallengeInput(input)
	if input.Title == "" {
		return models.Challenge{}, ErrChallengeInvalid
	}

	challenge, err := service.Get(challengeID)
	if err != nil {
		return models.Challenge{}, err
	}
	applyChallengeInput(&challenge, input)
	if err := service.challenges.Save(&challenge); err != nil {
		return models.Challenge{}, storageFailure("update challenge", err)
	}
	return challenge, nil
}

func (service *CatalogService) Delete(challengeID uint) error {
	err := service.challenges.Delete(challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChallengeNotFound
	}
	if err != nil {
		return storageFailure("delete challenge", err)
	}
	return nil
}

// SeedSuggestions asks the suggester for challenges tailored to profile and stores them.
// Any suggester failure falls back to the default pair. The returned source says which one was used.
func (service *CatalogService) SeedSuggestions(ctx context.Context, profile ai.Profile, now time.Time) ([]models.Challenge, string, error) {
	suggestions, source := service.suggest(ctx, profile)

	createdAt := now.UTC()
	challenges := make([]models.Challenge, 0, len(suggestions))
	for _, suggestion := range suggestions {
		challenge := models.Challenge{IsAIGenerated: true, CreatedAt: createdAt}
		applyChallengeInput(&challenge, normalizeChallengeInput(ChallengeInput{
			Title:       suggestion.Title,
			Type:        suggestion.Type,
			Duration:    suggestion.Duration,
			Difficulty:  suggestion.Difficulty,
			Goal:        suggestion.Goal,
			Description: suggestion.Description,
		}))
		challenges = append(challenges, challenge)
	}

	if err := service.challenges.CreateBatch(challenges); err != nil {
		return nil, source, storageFailure("store suggested challenges", err)
	}
	if service.recorder != nil {
		service.recorder.RecordSuggestions(source)
	}
	return challenges, source, nil
}

func (service *CatalogService) suggest(ctx context.Context, profile ai.Profile) ([]ai.Suggestion, string) {
	if service.suggester == nil {
		return ai.DefaultSuggestions(), SuggestionSourceFallback
	}

	suggestions, err := service.suggester.Suggest(ctx, profile)
	titled := make([]ai.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion.Title) != "" {
			titled = append(titled, suggestion)
		}
	}
	if err == nil && len(titled) > 0 {
		return titled, SuggestionSourceModel
	}
	if err == nil {
		err = ai.ErrNoSuggestions
	}
	service.log.Warn("challenge suggestions unavailable, using defaults", "error", err)
	return ai.DefaultSuggestions(), SuggestionSourceFallback
}

func normalizeChallengeInput(input ChallengeInput) ChallengeInput {
	return ChallengeInput{
		Title:       strings.TrimSpace(input.Title),
		Type:        strings.TrimSpace(input.Type),
		Duration:    strings.TrimSpace(input.Duration),
		Difficulty:  strings.TrimSpace(input.Difficulty),
		Goal:        strings.TrimSpace(input.Goal),
		Description: strings.TrimSpace(input.Description),
	}
}

func applyChallengeInput(challenge *models.Challenge, input ChallengeInput) {
	challenge.Title = input.Title
	challenge.Type = input.Type
	challenge.Duration = input.Duration
	challenge.Difficulty = input.Difficulty
	challenge.Goal = input.Goal
	challenge.Description = input.Description
}
