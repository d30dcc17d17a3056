package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/fittrack/internal/db"
	"github.com/terraincognita07/fittrack/internal/events"
	"github.com/terraincognita07/fittrack/internal/models"
)

type progressTestEnv struct {
	repos     *db.Repositories
	service   *ProgressService
	publisher *recordingPublisher
	recorder  *countingRecorder
	user      models.User
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ChallengeCompleted
	err    error
}

func (publisher *recordingPublisher) PublishCompletion(_ context.Context, event events.ChallengeCompleted) error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
	return publisher.err
}

type countingRecorder struct {
	mu          sync.Mutex
	joins       int
	marks       map[string]int
	completions int
	publishErrs int
}

func (recorder *countingRecorder) RecordJoin() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.joins++
}

func (recorder *countingRecorder) RecordMark(outcome string) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.marks[outcome]++
}

func (recorder *countingRecorder) RecordCompletion() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.completions++
}

func (recorder *countingRecorder) RecordCompletionPublish(err error) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if err != nil {
		recorder.publishErrs++
	}
}

func newProgressTestEnv(t *testing.T) *progressTestEnv {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "fittrack-progress.db"), nil)
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	repos := db.NewRepositories(database)
	publisher := &recordingPublisher{}
	recorder := &countingRecorder{marks: make(map[string]int)}
	service := NewProgressService(
		repos.Challenges,
		repos.Enrollments,
		repos.ProgressMarks,
		time.UTC,
		WithCompletionPublisher(publisher),
		WithProgressRecorder(recorder),
	)

	user := models.User{
		Username:     "runner",
		Email:        "runner@example.com",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repos.Users.Create(&user))

	return &progressTestEnv{
		repos:     repos,
		service:   service,
		publisher: publisher,
		recorder:  recorder,
		user:      user,
	}
}

func (env *progressTestEnv) createChallenge(t *testing.T, title string, duration string) models.Challenge {
	t.Helper()
	challenge := models.Challenge{Title: title, Duration: duration, CreatedAt: time.Now().UTC()}
	require.NoError(t, env.repos.Challenges.Create(&challenge))
	return challenge
}

var progressTestStart = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func progressTestDay(offset int) time.Time {
	return progressTestStart.AddDate(0, 0, offset)
}

func TestJoinCreatesEmptyEnrollment(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Plank", "7 Days")

	enrollment, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.NotZero(t, enrollment.ID)
	require.Zero(t, enrollment.ProgressPercentage)
	require.False(t, enrollment.Completed)
	require.Nil(t, enrollment.CompletedAt)
	require.True(t, enrollment.JoinedAt.Equal(progressTestStart))
	require.Equal(t, 1, env.recorder.joins)
}

func TestJoinRejectsDuplicatesAndMissingChallenges(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Plank", "7 Days")

	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	_, err = env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = env.service.Join(env.user.ID, challenge.ID+100, progressTestStart)
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMarkProgressRequiresEnrollment(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Plank", "7 Days")

	_, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.ErrorIs(t, err, ErrNotEnrolled)
	require.Equal(t, 1, env.recorder.marks[MarkOutcomeNotEnrolled])
}

func TestMarkProgressThirtyDayScenario(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "30-Day Push-Up Challenge", "30 Days")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	first, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(0))
	require.NoError(t, err)
	require.InDelta(t, 100.0/30.0, first.Progress, 1e-9)
	require.False(t, first.Completed)

	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(0).Add(3*time.Hour))
	require.ErrorIs(t, err, ErrAlreadyMarkedToday)

	var last MarkResult
	for day := 1; day < 30; day++ {
		last, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(day))
		require.NoError(t, err, "day %d", day+1)
		if day < 29 {
			require.False(t, last.Completed, "completed early on day %d", day+1)
		}
	}
	require.True(t, last.Completed)
	require.Equal(t, 100.0, last.Progress)
	require.NotNil(t, last.CompletedAt)

	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(30))
	require.ErrorIs(t, err, ErrAlreadyCompleted)

	stored, err := env.service.Enrollment(env.user.ID, challenge.ID)
	require.NoError(t, err)
	require.True(t, stored.Completed)
	require.Equal(t, 100.0, stored.ProgressPercentage)
	require.NotNil(t, stored.CompletedAt)
	require.True(t, stored.CompletedAt.Equal(progressTestDay(29)))

	history, err := env.service.History(env.user.ID, challenge.ID)
	require.NoError(t, err)
	require.Len(t, history, 30)
	require.Equal(t, FormatCalendarDate(progressTestDay(29)), FormatCalendarDate(history[0].ProgressDate))

	require.Len(t, env.publisher.events, 1)
	require.Equal(t, events.ChallengeCompletedType, env.publisher.events[0].Type)
	require.Equal(t, challenge.ID, env.publisher.events[0].ChallengeID)
	require.Equal(t, 1, env.recorder.completions)
	require.Equal(t, 1, env.recorder.marks[MarkOutcomeAlreadyMarked])
	require.Equal(t, 1, env.recorder.marks[MarkOutcomeAlreadyCompleted])
}

func TestMarkProgressEmptyDurationUsesThirtyDays(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Mystery", "")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	result, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.InDelta(t, 100.0/30.0, result.Progress, 1e-9)
	require.False(t, result.Completed)
}

func TestMarkProgressZeroDurationCompletesImmediately(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Broken", "0 Days")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	result, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Progress)
	require.True(t, result.Completed)

	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(1))
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestMarkProgressPublishFailureDoesNotFailMark(t *testing.T) {
	env := newProgressTestEnv(t)
	env.publisher.err = errors.New("broker down")
	challenge := env.createChallenge(t, "One Day", "1 Day")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	result, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Equal(t, 1, env.recorder.publishErrs)
}

func TestMarkProgressConcurrentSubmissionsRecordOneMark(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Plank", "10 Days")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyMarkedToday)
	}
	require.Equal(t, 1, succeeded)

	stored, err := env.service.Enrollment(env.user.ID, challenge.ID)
	require.NoError(t, err)
	require.InDelta(t, 10.0, stored.ProgressPercentage, 1e-9)

	history, err := env.service.History(env.user.ID, challenge.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestCanMarkTodayFollowsMarkChecks(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Two Days", "2 Days")

	canMark, err := env.service.CanMarkToday(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.False(t, canMark, "not enrolled")

	_, err = env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	canMark, err = env.service.CanMarkToday(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.True(t, canMark)

	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	canMark, err = env.service.CanMarkToday(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	require.False(t, canMark, "already marked today")

	canMark, err = env.service.CanMarkToday(env.user.ID, challenge.ID, progressTestDay(1))
	require.NoError(t, err)
	require.True(t, canMark, "new day")

	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestDay(1))
	require.NoError(t, err)
	canMark, err = env.service.CanMarkToday(env.user.ID, challenge.ID, progressTestDay(2))
	require.NoError(t, err)
	require.False(t, canMark, "completed")
}

func TestListForUserNewestJoinFirst(t *testing.T) {
	env := newProgressTestEnv(t)
	older := env.createChallenge(t, "Older", "7 Days")
	newer := env.createChallenge(t, "Newer", "7 Days")

	_, err := env.service.Join(env.user.ID, older.ID, progressTestDay(0))
	require.NoError(t, err)
	_, err = env.service.Join(env.user.ID, newer.ID, progressTestDay(1))
	require.NoError(t, err)
	_, err = env.service.MarkProgress(context.Background(), env.user.ID, older.ID, progressTestDay(2))
	require.NoError(t, err)

	views, err := env.service.ListForUser(env.user.ID, progressTestDay(2))
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "Newer", views[0].Challenge.Title)
	require.True(t, views[0].CanMarkToday)
	require.Equal(t, "Older", views[1].Challenge.Title)
	require.False(t, views[1].CanMarkToday)
}

func TestOverviewAnnotatesCallerEnrollments(t *testing.T) {
	env := newProgressTestEnv(t)
	joined := env.createChallenge(t, "Joined", "7 Days")
	env.createChallenge(t, "Open", "7 Days")

	_, err := env.service.Join(env.user.ID, joined.ID, progressTestStart)
	require.NoError(t, err)

	entries, err := env.service.Overview(env.user.ID, progressTestStart)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Enrollment)
	require.True(t, entries[0].CanMarkToday)
	require.Nil(t, entries[1].Enrollment)
	require.False(t, entries[1].CanMarkToday)
}

func TestLeaveRemovesEnrollmentAndHistory(t *testing.T) {
	env := newProgressTestEnv(t)
	challenge := env.createChallenge(t, "Plank", "7 Days")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)
	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	require.NoError(t, env.service.Leave(env.user.ID, challenge.ID))

	_, err = env.service.History(env.user.ID, challenge.ID)
	require.ErrorIs(t, err, ErrNotEnrolled)
	require.ErrorIs(t, env.service.Leave(env.user.ID, challenge.ID), ErrNotEnrolled)

	rejoined, err := env.service.Join(env.user.ID, challenge.ID, progressTestDay(1))
	require.NoError(t, err)
	require.Zero(t, rejoined.ProgressPercentage)
}

func TestMarkProgressUsesServiceLocationForToday(t *testing.T) {
	env := newProgressTestEnv(t)
	env.service = NewProgressService(env.repos.Challenges, env.repos.Enrollments, env.repos.ProgressMarks, time.FixedZone("UTC-5", -5*60*60))
	challenge := env.createChallenge(t, "Plank", "7 Days")
	_, err := env.service.Join(env.user.ID, challenge.ID, progressTestStart)
	require.NoError(t, err)

	evening := time.Date(2026, time.March, 2, 3, 0, 0, 0, time.UTC)
	_, err = env.service.MarkProgress(context.Background(), env.user.ID, challenge.ID, evening)
	require.NoError(t, err)

	history, err := env.service.History(env.user.ID, challenge.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "2026-03-01", FormatCalendarDate(history[0].ProgressDate))
}
