package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret-at-least-16-chars")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-at-least-16-char")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenExpiry)

	assert.Equal(t, 5, cfg.RateLimit.Login.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Login.Window)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Login.BlockDuration)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.SweepInterval)
	assert.Equal(t, 1*time.Hour, cfg.RateLimit.Retention)
}

func TestLoad_MissingAccessSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-at-least-16-char")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_ACCESS_SECRET")
}

func TestLoad_IdenticalSecretsRejected(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "same-secret-at-least-16-chars!!")
	t.Setenv("JWT_REFRESH_SECRET", "same-secret-at-least-16-chars!!")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := Load()
	assert.ErrorContains(t, err, "must differ")
}

func TestLoad_WeakSecretRejectedInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "short-prod-secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingDBPassword(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret-at-least-16-chars")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-at-least-16-char")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_PASSWORD")
}

func TestLoad_PolicyOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("LOGIN_ATTEMPT_WINDOW", "5m")
	t.Setenv("LOGIN_BLOCK_DURATION", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RateLimit.Login.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Login.Window)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.Login.BlockDuration)
}

func TestLoad_EmailEnabledRequiresFromAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	_, err := Load()
	assert.ErrorContains(t, err, "EMAIL_FROM_ADDRESS")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres",
		Password: "pw", Name: "fitpulse", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=fitpulse sslmode=disable",
		cfg.DSN())
}
