package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terraincognita07/fittrack/internal/db"
	"github.com/terraincognita07/fittrack/internal/events"
	"github.com/terraincognita07/fittrack/internal/logger"
	"github.com/terraincognita07/fittrack/internal/models"
	"gorm.io/gorm"
)

const (
	MarkOutcomeRecorded         = "recorded"
	MarkOutcomeCompleted        = "completed"
	MarkOutcomeAlreadyMarked    = "already_marked"
	MarkOutcomeAlreadyCompleted = "already_completed"
	MarkOutcomeNotEnrolled      = "not_enrolled"
	MarkOutcomeFailed           = "failed"
)

type ProgressChallengeRepository interface {
	FindByID(challengeID uint) (models.Challenge, error)
	List() ([]models.Challenge, error)
	ListByIDs(challengeIDs []uint) ([]models.Challenge, error)
}

type ProgressEnrollmentRepository interface {
	FindByUserAndChallenge(userID uint, challengeID uint) (models.Enrollment, bool, error)
	ListByUser(userID uint) ([]models.Enrollment, error)
	Create(entry *models.Enrollment) error
	Delete(enrollmentID uint) error
	ApplyMark(enrollmentID uint, day time.Time, now time.Time, advance db.EnrollmentAdvanceFunc) (models.Enrollment, error)
}

type ProgressMarkRepository interface {
	HasMark(enrollmentID uint, day time.Time) (bool, error)
	MarkedEnrollmentIDs(enrollmentIDs []uint, day time.Time) (map[uint]bool, error)
	History(enrollmentID uint) ([]models.ProgressMark, error)
}

type CompletionPublisher interface {
	PublishCompletion(ctx context.Context, event events.ChallengeCompleted) error
}

// ProgressRecorder receives counters for joins, mark attempts and completions.
type ProgressRecorder interface {
	RecordJoin()
	RecordMark(outcome string)
	RecordCompletion()
	RecordCompletionPublish(err error)
}

type MarkResult struct {
	Progress    float64
	Completed   bool
	CompletedAt *time.Time
}

type EnrollmentView struct {
	Enrollment   models.Enrollment
	Challenge    models.Challenge
	CanMarkToday bool
}

// CatalogEntry is a challenge as seen by one user. Enrollment is nil when the user has not joined.
type CatalogEntry struct {
	Challenge    models.Challenge
	Enrollment   *models.Enrollment
	CanMarkToday bool
}

type ProgressService struct {
	challenges  ProgressChallengeRepository
	enrollments ProgressEnrollmentRepository
	marks       ProgressMarkRepository
	location    *time.Location
	publisher   CompletionPublisher
	recorder    ProgressRecorder
	log         *logger.Logger
}

type ProgressOption func(*ProgressService)

func WithCompletionPublisher(publisher CompletionPublisher) ProgressOption {
	return func(service *ProgressService) {
		if publisher != nil {
			service.publisher = publisher
		}
	}
}

func WithProgressRecorder(recorder ProgressRecorder) ProgressOption {
	return func(service *ProgressService) {
		if recorder != nil {
			service.recorder = recorder
		}
	}
}

func WithProgressLogger(log *logger.Logger) ProgressOption {
	return func(service *ProgressService) {
		if log != nil {
			service.log = log
		}
	}
}

func NewProgressService(
	challenges ProgressChallengeRepository,
	enrollments ProgressEnrollmentRepository,
	marks ProgressMarkRepository,
	location *time.Location,
	options ...ProgressOption,
) *ProgressService {
	if location == nil {
		location = time.UTC
	}
	service := &ProgressService{
		challenges:  challenges,
		enrollments: enrollments,
		marks:       marks,
		location:    location,
		publisher:   events.NoopPublisher{},
		recorder:    noopProgressRecorder{},
		log:         logger.Nop(),
	}
	for _, option := range options {
		option(service)
	}
	return service
}

func (service *ProgressService) Location() *time.Location {
	return service.location
}

func (service *ProgressService) Today(now time.Time) time.Time {
	return CalendarDate(now, service.location)
}

func (service *ProgressService) Join(userID uint, challengeID uint, now time.Time) (models.Enrollment, error) {
	if _, err := service.findChallenge(challengeID); err != nil {
		return models.Enrollment{}, err
	}

	_, found, err := service.enrollments.FindByUserAndChallenge(userID, challengeID)
	if err != nil {
		return models.Enrollment{}, storageFailure("load enrollment", err)
	}
	if found {
		return models.Enrollment{}, ErrAlreadyEnrolled
	}

	entry := models.Enrollment{
		UserID:             userID,
		ChallengeID:        challengeID,
		ProgressPercentage: 0,
		Completed:          false,
		JoinedAt:           now.UTC(),
	}
	if err := service.enrollments.Create(&entry); err != nil {
		if errors.Is(err, db.ErrDuplicateEnrollment) {
			return models.Enrollment{}, ErrAlreadyEnrolled
		}
		return models.Enrollment{}, storageFailure("create enrollment", err)
	}

	service.recorder.RecordJoin()
	return entry, nil
}

func (service *ProgressService) Enrollment(userID uint, challengeID uint) (models.Enrollment, error) {
	entry, found, err := service.enrollments.FindByUserAndChallenge(userID, challengeID)
	if err != nil {
		return models.Enrollment{}, storageFailure("load enrollment", err)
	}
	if !found {
		return models.Enrollment{}, ErrNotEnrolled
	}
	return entry, nil
}

// MarkProgress records today's mark and advances the enrollment by one day's increment.
func (service *ProgressService) MarkProgress(ctx context.Context, userID uint, challengeID uint, now time.Time) (MarkResult, error) {
	result, completed, err := service.markProgress(userID, challengeID, now)
	if err != nil {
		service.recorder.RecordMark(markOutcome(err))
		return MarkResult{}, err
	}

	if !result.Completed {
		service.recorder.RecordMark(MarkOutcomeRecorded)
		return result, nil
	}

	service.recorder.RecordMark(MarkOutcomeCompleted)
	service.recorder.RecordCompletion()
	service.publishCompletion(ctx, completed)
	return result, nil
}

func (service *ProgressService) markProgress(userID uint, challengeID uint, now time.Time) (MarkResult, events.ChallengeCompleted, error) {
	enrollment, err := service.Enrollment(userID, challengeID)
	if err != nil {
		return MarkResult{}, events.ChallengeCompleted{}, err
	}

	today := service.Today(now)
	if err := service.checkMarkable(enrollment, today); err != nil {
		return MarkResult{}, events.ChallengeCompleted{}, err
	}

	challenge, err := service.findChallenge(challengeID)
	if err != nil {
		return MarkResult{}, events.ChallengeCompleted{}, err
	}

	completedAt := now.UTC()
	updated, err := service.enrollments.ApplyMark(enrollment.ID, today, completedAt, func(current models.Enrollment) (models.Enrollment, error) {
		if current.Completed {
			return models.Enrollment{}, ErrAlreadyCompleted
		}
		progress, completes := AdvanceProgress(current.ProgressPercentage, challenge.Duration)
		current.ProgressPercentage = progress
		if completes {
			current.Completed = true
			current.CompletedAt = &completedAt
		}
		return current, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, db.ErrDuplicateMark):
		return MarkResult{}, events.ChallengeCompleted{}, ErrAlreadyMarkedToday
	case errors.Is(err, ErrAlreadyCompleted):
		return MarkResult{}, events.ChallengeCompleted{}, ErrAlreadyCompleted
	case errors.Is(err, gorm.ErrRecordNotFound):
		return MarkResult{}, events.ChallengeCompleted{}, ErrNotEnrolled
	default:
		return MarkResult{}, events.ChallengeCompleted{}, storageFailure("apply progress mark", err)
	}

	result := MarkResult{
		Progress:    updated.ProgressPercentage,
		Completed:   updated.Completed,
		CompletedAt: updated.CompletedAt,
	}
	completed := events.ChallengeCompleted{
		Type:         events.ChallengeCompletedType,
		EnrollmentID: updated.ID,
		UserID:       updated.UserID,
		ChallengeID:  updated.ChallengeID,
		Title:        challenge.Title,
		CompletedAt:  completedAt,
	}
	return result, completed, nil
}

// CanMarkToday answers with the same checks MarkProgress applies before writing.
func (service *ProgressService) CanMarkToday(userID uint, challengeID uint, now time.Time) (bool, error) {
	enrollment, err := service.Enrollment(userID, challengeID)
	if errors.Is(err, ErrNotEnrolled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = service.checkMarkable(enrollment, service.Today(now))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrAlreadyMarkedToday):
		return false, nil
	default:
		return false, err
	}
}

func (service *ProgressService) checkMarkable(enrollment models.Enrollment, today time.Time) error {
	if enrollment.Completed {
		return ErrAlreadyCompleted
	}
	marked, err := service.marks.HasMark(enrollment.ID, today)
	if err != nil {
		return storageFailure("check progress mark", err)
	}
	if marked {
		return ErrAlreadyMarkedToday
	}
	return nil
}

// markableFromLedger is checkMarkable with today's marks prefetched for a batch of enrollments.
func markableFromLedger(enrollment models.Enrollment, markedToday map[uint]bool) bool {
	return !enrollment.Completed && !markedToday[enrollment.ID]
}

// ListForUser returns the caller's enrollments joined with their challenges, newest join first.
func (service *ProgressService) ListForUser(userID uint, now time.Time) ([]EnrollmentView, error) {
	enrollments, err := service.enrollments.ListByUser(userID)
	if err != nil {
		return nil, storageFailure("list enrollments", err)
	}
	if len(enrollments) == 0 {
		return []EnrollmentView{}, nil
	}

	enrollmentIDs := make([]uint, 0, len(enrollments))
	challengeIDs := make([]uint, 0, len(enrollments))
	for _, entry := range enrollments {
		enrollmentIDs = append(enrollmentIDs, entry.ID)
		challengeIDs = append(challengeIDs, entry.ChallengeID)
	}

	challenges, err := service.challenges.ListByIDs(challengeIDs)
	if err != nil {
		return nil, storageFailure("list enrolled challenges", err)
	}
	challengeByID := make(map[uint]models.Challenge, len(challenges))
	for _, challenge := range challenges {
		challengeByID[challenge.ID] = challenge
	}

	markedToday, err := service.marks.MarkedEnrollmentIDs(enrollmentIDs, service.Today(now))
	if err != nil {
		return nil, storageFailure("check progress marks", err)
	}

	views := make([]EnrollmentView, 0, len(enrollments))
	for _, entry := range enrollments {
		challenge, ok := challengeByID[entry.ChallengeID]
		if !ok {
			continue
		}
		views = append(views, EnrollmentView{
			Enrollment:   entry,
			Challenge:    challenge,
			CanMarkToday: markableFromLedger(entry, markedToday),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		left, right := views[i].Enrollment, views[j].Enrollment
		if left.JoinedAt.Equal(right.JoinedAt) {
			return left.ID > right.ID
		}
		return left.JoinedAt.After(right.JoinedAt)
	})
	return views, nil
}

// Overview is the whole catalog annotated with the caller's enrollment state.
func (service *ProgressService) Overview(userID uint, now time.Time) ([]CatalogEntry, error) {
	challenges, err := service.challenges.List()
	if err != nil {
		return nil, storageFailure("list challenges", err)
	}
	enrollments, err := service.enrollments.ListByUser(userID)
	if err != nil {
		return nil, storageFailure("list enrollments", err)
	}

	enrollmentByChallenge := make(map[uint]models.Enrollment, len(enrollments))
	enrollmentIDs := make([]uint, 0, len(enrollments))
	for _, entry := range enrollments {
		enrollmentByChallenge[entry.ChallengeID] = entry
		enrollmentIDs = append(enrollmentIDs, entry.ID)
	}

	markedToday, err := service.marks.MarkedEnrollmentIDs(enrollmentIDs, service.Today(now))
	if err != nil {
		return nil, storageFailure("check progress marks", err)
	}

	entries := make([]CatalogEntry, 0, len(challenges))
	for _, challenge := range challenges {
		entry := CatalogEntry{Challenge: challenge}
		if enrollment, ok := enrollmentByChallenge[challenge.ID]; ok {
			entry.Enrollment = &enrollment
			entry.CanMarkToday = markableFromLedger(enrollment, markedToday)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (service *ProgressService) History(userID uint, challengeID uint) ([]models.ProgressMark, error) {
	enrollment, err := service.Enrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	marks, err := service.marks.History(enrollment.ID)
	if err != nil {
		return nil, storageFailure("load progress history", err)
	}
	return marks, nil
}

// Leave deletes the caller's enrollment together with its marks.
func (service *ProgressService) Leave(userID uint, challengeID uint) error {
	enrollment, err := service.Enrollment(userID, challengeID)
	if err != nil {
		return err
	}
	if err := service.enrollments.Delete(enrollment.ID); err != nil {
		return storageFailure("delete enrollment", err)
	}
	return nil
}

func (service *ProgressService) findChallenge(challengeID uint) (models.Challenge, error) {
	challenge, err := service.challenges.FindByID(challengeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Challenge{}, ErrChallengeNotFound
	}
	if err != nil {
		return models.Challenge{}, storageFailure("load challenge", err)
	}
	return challenge, nil
}

func (service *ProgressService) publishCompletion(ctx context.Context, event events.ChallengeCompleted) {
	err := service.publisher.PublishCompletion(ctx, event)
	service.recorder.RecordCompletionPublish(err)
	if err != nil {
		service.log.Error("completion event not published",
			"enrollment_id", event.EnrollmentID,
			"challenge_id", event.ChallengeID,
			"error", err,
		)
	}
}

func markOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyMarkedToday):
		return MarkOutcomeAlreadyMarked
	case errors.Is(err, ErrAlreadyCompleted):
		return MarkOutcomeAlreadyCompleted
	case errors.Is(err, ErrNotEnrolled), errors.Is(err, ErrChallengeNotFound):
		return MarkOutcomeNotEnrolled
	default:
		return MarkOutcomeFailed
	}
}

func storageFailure(action string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageFailure, action, err)
}

type noopProgressRecorder struct{}

func (noopProgressRecorder) RecordJoin()                   {}
func (noopProgressRecorder) RecordMark(string)             {}
func (noopProgressRecorder) RecordCompletion()             {}
func (noopProgressRecorder) RecordCompletionPublish(error) {}
