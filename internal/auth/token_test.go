package auth

import (
	"testing"
	"time"

	"github.com/danielmv21/fitpulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:     "account-123",
		Email:  "a@x.com",
		Role:   models.RoleUser,
		Status: models.StatusActive,
	}
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager(
		"access-secret-for-tests-0123456",
		"refresh-secret-for-tests-01234",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestTokenManager_AccessTokenRoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateAccessToken(testAccount())
	require.NoError(t, err)

	claims, err := tm.ValidateAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "account-123", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID, "token must carry a jti")
}

func TestTokenManager_RefreshTokenRoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateRefreshToken(testAccount())
	require.NoError(t, err)

	claims, err := tm.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)
}

func TestTokenManager_SecretsAreNotInterchangeable(t *testing.T) {
	tm := newTestTokenManager()

	accessToken, err := tm.GenerateAccessToken(testAccount())
	require.NoError(t, err)
	refreshToken, err := tm.GenerateRefreshToken(testAccount())
	require.NoError(t, err)

	_, err = tm.ValidateRefreshToken(accessToken)
	assert.Error(t, err, "access token must not verify against refresh secret")

	_, err = tm.ValidateAccessToken(refreshToken)
	assert.Error(t, err, "refresh token must not verify against access secret")
}

func TestTokenManager_ExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager(
		"access-secret-for-tests-0123456",
		"refresh-secret-for-tests-01234",
		-1*time.Minute,
		-1*time.Minute,
	)

	token, err := tm.GenerateAccessToken(testAccount())
	require.NoError(t, err)

	_, err = tm.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestTokenManager_TamperedTokenRejected(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateAccessToken(testAccount())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = tm.ValidateAccessToken(tampered)
	assert.Error(t, err)
}

func TestTokenManager_DifferentSecretRejected(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager(
		"a-completely-different-secret!!",
		"another-different-secret-value!",
		15*time.Minute,
		7*24*time.Hour,
	)

	token, err := tm.GenerateAccessToken(testAccount())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}
