package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAndLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	registerToken, _ := env.register(t, "runner", "Runner@Example.com")

	status, profile := env.do(t, http.MethodGet, "/api/auth/profile", registerToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "runner", profile["username"])
	require.Equal(t, "runner@example.com", profile["email"])
	require.Equal(t, "user", profile["role"])

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "runner@example.com",
		"password": "StrongPass1",
	})
	require.Equal(t, http.StatusOK, status, body)
	loginToken, _ := body["access_token"].(string)
	require.NotEmpty(t, loginToken)
	require.NotEqual(t, registerToken, loginToken)

	status, _ = env.do(t, http.MethodPost, "/api/auth/logout", loginToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/auth/profile", loginToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthorized", body["error"])

	status, _ = env.do(t, http.MethodGet, "/api/auth/profile", registerToken, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestRegisterRejectsDuplicateEmailAndUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "runner", "runner@example.com")

	status, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other",
		"email":    "RUNNER@example.com",
		"password": "StrongPass1",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Email already registered", body["error"])

	status, body = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "runner",
		"email":    "second@example.com",
		"password": "StrongPass1",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "Username already taken", body["error"])
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "runner",
		"email":    "runner@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "weak password", body["error"])
}

func TestLoginThrottlesRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "runner", "runner@example.com")

	wrong := map[string]string{"email": "runner@example.com", "password": "WrongPass1"}
	for attempt := 0; attempt < loginAttemptLimit; attempt++ {
		status, _ := env.do(t, http.MethodPost, "/api/auth/login", "", wrong)
		require.Equal(t, http.StatusUnauthorized, status, "attempt %d", attempt)
	}

	right := map[string]string{"email": "runner@example.com", "password": "StrongPass1"}
	status, _ := env.do(t, http.MethodPost, "/api/auth/login", "", right)
	require.Equal(t, http.StatusTooManyRequests, status)

	env.clock.Advance(loginAttemptWindow + time.Minute)
	status, _ = env.do(t, http.MethodPost, "/api/auth/login", "", right)
	require.Equal(t, http.StatusOK, status)
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "runner@example.com"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Email and password required", body["error"])
}

func TestExpiredTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "runner", "runner@example.com")

	env.clock.Advance(2 * time.Hour)
	status, _ := env.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/auth/profile", "/api/challenges", "/api/challenges/my-challenges"} {
		status, body := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, "unauthorized", body["error"], path)
	}

	status, _ := env.do(t, http.MethodGet, "/api/challenges", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestUpdateProfileSetsAndClearsMeasurements(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "runner", "runner@example.com")

	status, body := env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{
		"mobile_number": "5551234",
		"height":        182.5,
		"weight":        78,
	})
	require.Equal(t, http.StatusOK, status, body)
	user, _ := body["user"].(map[string]any)
	require.Equal(t, "5551234", user["mobile_number"])
	require.Equal(t, 182.5, user["height"])
	require.Equal(t, 78.0, user["weight"])

	status, body = env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{"height": nil})
	require.Equal(t, http.StatusOK, status, body)
	user, _ = body["user"].(map[string]any)
	require.Nil(t, user["height"])
	require.Equal(t, 78.0, user["weight"])

	status, _ = env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{"weight": -4})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "runner", "runner@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"current_password": "WrongPass1",
		"new_password":     "NewStrongPass2",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"current_password": "StrongPass1",
		"new_password":     "NewStrongPass2",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "runner@example.com",
		"password": "NewStrongPass2",
	})
	require.Equal(t, http.StatusOK, status)
}
