package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/fittrack/internal/db"
	"github.com/terraincognita07/fittrack/internal/models"
	"github.com/terraincognita07/fittrack/internal/observability"
	"github.com/terraincognita07/fittrack/internal/services"
)

const testSecretKey = "test-secret-key-with-at-least-32-characters"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Advance(delta time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(delta)
}

type testEnv struct {
	app   *fiber.App
	repos *db.Repositories
	clock *testClock
}

type testEnvOption func(*Dependencies, *db.Repositories)

func newTestEnv(t *testing.T, options ...testEnvOption) *testEnv {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "fittrack-api-test.db"), nil)
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	repos := db.NewRepositories(database)
	clock := &testClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	metrics := observability.New()

	deps := Dependencies{
		Auth:    services.NewAuthService(repos.Users),
		Account: services.NewAccountService(repos.Users),
		Progress: services.NewProgressService(
			repos.Challenges,
			repos.Enrollments,
			repos.ProgressMarks,
			time.UTC,
			services.WithProgressRecorder(metrics),
		),
		Catalog:       services.NewCatalogService(repos.Challenges, nil, metrics, nil),
		RevokedTokens: repos.RevokedTokens,
		Metrics:       metrics,
		SecretKey:     testSecretKey,
		TokenTTL:      time.Hour,
		Now:           clock.Now,
	}
	for _, option := range options {
		option(&deps, repos)
	}

	handler, err := NewHandler(deps)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(metrics.Middleware())
	RegisterRoutes(app, handler)
	return &testEnv{app: app, repos: repos, clock: clock}
}

func (env *testEnv) do(t *testing.T, method string, path string, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := env.app.Test(request, -1)
	require.NoError(t, err)
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return response.StatusCode, decoded
}

func (env *testEnv) register(t *testing.T, username string, email string) (string, uint) {
	t.Helper()

	status, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "StrongPass1",
	})
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	id, _ := user["id"].(float64)
	return token, uint(id)
}

// login signs in again, for tests that move the clock past the token lifetime.
func (env *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "StrongPass1",
	})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (env *testEnv) registerAdmin(t *testing.T) string {
	t.Helper()

	token, userID := env.register(t, "coach", "coach@example.com")
	require.NoError(t, env.repos.Users.UpdateRole(userID, models.RoleAdmin))
	return token
}

func (env *testEnv) seedChallenge(t *testing.T, title string, duration string) models.Challenge {
	t.Helper()

	challenge := models.Challenge{
		Title:     title,
		Type:      "Strength",
		Duration:  duration,
		CreatedAt: env.clock.Now().UTC(),
	}
	require.NoError(t, env.repos.Challenges.Create(&challenge))
	return challenge
}
