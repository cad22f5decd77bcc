package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielmv21/fitpulse/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skipping integration tests: %v\n", err)
		os.Exit(0)
	}
	testDB = db

	code := m.Run()

	db.Teardown(ctx)
	os.Exit(code)
}

func setupTest(t *testing.T) *TestServer {
	t.Helper()
	ts := NewTestServer(testDB.DB)
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, testDB.CleanupTables(context.Background()))
	})
	return ts
}

func TestAccountLifecycle(t *testing.T) {
	ts := setupTest(t)

	const email = "runner@example.com"
	const password = "Marathon42K"

	// Register
	resp, err := ts.Request(http.MethodPost, "/auth/register-account",
		map[string]string{"email": email, "password": password}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		AccountID string `json:"account_id"`
	}
	require.NoError(t, ParseJSONResponse(resp, &registered))
	require.NotEmpty(t, registered.AccountID)

	// Welcome email is delivered asynchronously
	assert.Eventually(t, func() bool {
		return ts.EmailSender.LastEmail() == email
	}, 2*time.Second, 10*time.Millisecond)

	// Registering the same email again points at profile setup
	resp, err = ts.Request(http.MethodPost, "/auth/register-account",
		map[string]string{"email": email, "password": password}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// An unprofiled account can already sign in
	resp, err = ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Complete profile setup
	resp, err = ts.Request(http.MethodPost, "/auth/complete-profile-setup",
		map[string]string{"account_id": registered.AccountID, "name": "Dana", "birth_date": "1990-04-12"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Running setup twice conflicts
	resp, err = ts.Request(http.MethodPost, "/auth/complete-profile-setup",
		map[string]string{"account_id": registered.AccountID, "name": "Dana"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Sign in on the now-active account
	resp, err = ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, refreshToken, accountID, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)
	assert.Equal(t, registered.AccountID, accountID)

	// Rotate the refresh token
	resp, err = ts.Request(http.MethodPost, "/auth/refresh-token",
		map[string]string{"refresh_token": refreshToken}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	newAccess, newRefresh, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, newRefresh)
	assert.NotEqual(t, refreshToken, newRefresh)

	// The rotated-out token is single use: replaying it fails
	resp, err = ts.Request(http.MethodPost, "/auth/refresh-token",
		map[string]string{"refresh_token": refreshToken}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Logout ends the session
	resp, err = ts.RequestWithAuth(http.MethodPost, "/auth/logout", newAccess,
		map[string]string{"account_id": accountID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The current refresh token is now dead too
	resp, err = ts.Request(http.MethodPost, "/auth/refresh-token",
		map[string]string{"refresh_token": newRefresh}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestFailedLoginLockout(t *testing.T) {
	ts := setupTest(t)
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "locked@example.com", "RightSecret1", models.StatusActive)
	require.NoError(t, err)

	// Burn through the attempt budget
	for i := 0; i < 5; i++ {
		resp, err := ts.Request(http.MethodPost, "/auth/login",
			map[string]string{"email": "locked@example.com", "password": "WrongSecret1"}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	// The block now rejects even the correct password
	resp, err := ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "locked@example.com", "password": "RightSecret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()

	// A different email is unaffected
	_, err = SeedAccount(ctx, testDB.Pool, "other@example.com", "RightSecret1", models.StatusActive)
	require.NoError(t, err)

	resp, err = ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "other@example.com", "password": "RightSecret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestForgivenessOnSuccess(t *testing.T) {
	ts := setupTest(t)
	ctx := context.Background()

	_, err := SeedAccount(ctx, testDB.Pool, "clumsy@example.com", "RightSecret1", models.StatusActive)
	require.NoError(t, err)

	// A few failures, then a success
	for i := 0; i < 3; i++ {
		resp, err := ts.Request(http.MethodPost, "/auth/login",
			map[string]string{"email": "clumsy@example.com", "password": "WrongSecret1"}, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "clumsy@example.com", "password": "RightSecret1"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The success wiped the history: the full budget is available again
	status := ts.Limiter.Status("email:clumsy@example.com")
	assert.False(t, status.Blocked)
	assert.Zero(t, status.Attempts)
}

func TestChangePasswordFlow(t *testing.T) {
	ts := setupTest(t)
	ctx := context.Background()

	account, err := SeedAccount(ctx, testDB.Pool, "rotator@example.com", "OldSecret1", models.StatusActive)
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "rotator@example.com", "password": "OldSecret1"}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	accessToken, refreshToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	// Wrong current password is rejected
	resp, err = ts.RequestWithAuth(http.MethodPost, "/auth/change-password", accessToken,
		map[string]string{"account_id": account.ID, "current_password": "Guess1234", "new_password": "NewSecret1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Correct current password succeeds
	resp, err = ts.RequestWithAuth(http.MethodPost, "/auth/change-password", accessToken,
		map[string]string{"account_id": account.ID, "current_password": "OldSecret1", "new_password": "NewSecret1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The password change ended the refresh session
	resp, err = ts.Request(http.MethodPost, "/auth/refresh-token",
		map[string]string{"refresh_token": refreshToken}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Old password no longer works, new one does
	resp, err = ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "rotator@example.com", "password": "OldSecret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request(http.MethodPost, "/auth/login",
		map[string]string{"email": "rotator@example.com", "password": "NewSecret1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAccountStateGating(t *testing.T) {
	ts := setupTest(t)
	ctx := context.Background()

	bodies := make(map[models.AccountStatus]string)
	for _, tc := range []struct {
		status  models.AccountStatus
		email   string
		message string
	}{
		{models.StatusInactive, "dormant@example.com", "Account is inactive"},
		{models.StatusSuspended, "banned@example.com", "Account is suspended"},
	} {
		_, err := SeedAccount(ctx, testDB.Pool, tc.email, "RightSecret1", tc.status)
		require.NoError(t, err)

		resp, err := ts.Request(http.MethodPost, "/auth/login",
			map[string]string{"email": tc.email, "password": "RightSecret1"}, nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
			"status %s must not be able to sign in", tc.status)
		assert.Contains(t, string(body), tc.message)
		bodies[tc.status] = string(body)
	}
	assert.NotEqual(t, bodies[models.StatusInactive], bodies[models.StatusSuspended],
		"inactive and suspended must be told apart by the response body")
}
