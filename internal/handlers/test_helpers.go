package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/config"
	"github.com/danielmv21/fitpulse/internal/models"
	"github.com/danielmv21/fitpulse/internal/services"
)

// MockAuthService is a configurable mock for AuthServiceInterface
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, email, password string) (*services.RegisterResult, error)
	CompleteProfileSetupFunc func(ctx context.Context, accountID string, profile *models.Profile) error
	SignInFunc               func(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshTokenFunc         func(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	LogoutFunc               func(ctx context.Context, accountID string) error
	ChangePasswordFunc       func(ctx context.Context, accountID, currentPassword, newPassword string) error
	SignInWithGoogleFunc     func(ctx context.Context, email string) (*models.TokenPair, error)
}

func (m *MockAuthService) Register(ctx context.Context, email, password string) (*services.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password)
	}
	return &services.RegisterResult{AccountID: "acc-1"}, nil
}

func (m *MockAuthService) CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error {
	if m.CompleteProfileSetupFunc != nil {
		return m.CompleteProfileSetupFunc(ctx, accountID, profile)
	}
	return nil
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*models.TokenPair, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", AccountID: "acc-1"}, nil
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", AccountID: "acc-1"}, nil
}

func (m *MockAuthService) Logout(ctx context.Context, accountID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accountID)
	}
	return nil
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, accountID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAuthService) SignInWithGoogle(ctx context.Context, email string) (*models.TokenPair, error) {
	if m.SignInWithGoogleFunc != nil {
		return m.SignInWithGoogleFunc(ctx, email)
	}
	return &models.TokenPair{AccessToken: "access", RefreshToken: "refresh", AccountID: "acc-1"}, nil
}

// MockAttemptRecorder records limiter calls for assertions
type MockAttemptRecorder struct {
	Failed    []string
	Succeeded []string
	StatusMap map[string]services.RateLimitResult
}

func (m *MockAttemptRecorder) RecordFailedAttempt(key string, policy config.RateLimitPolicy) services.RateLimitResult {
	m.Failed = append(m.Failed, key)
	return services.RateLimitResult{Attempts: len(m.Failed)}
}

func (m *MockAttemptRecorder) RecordSuccessfulAttempt(key string) {
	m.Succeeded = append(m.Succeeded, key)
}

func (m *MockAttemptRecorder) Status(key string) services.RateLimitResult {
	if m.StatusMap != nil {
		return m.StatusMap[key]
	}
	return services.RateLimitResult{}
}

func testPolicies() config.RateLimitConfig {
	return config.RateLimitConfig{
		Login:          config.RateLimitPolicy{MaxAttempts: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
		PasswordChange: config.RateLimitPolicy{MaxAttempts: 3, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
	}
}

// withClaims attaches validated access-token claims the way the auth
// middleware would.
func withClaims(r *http.Request, accountID, role string) *http.Request {
	claims := &models.TokenClaims{
		Type: models.TokenTypeAccess,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: accountID,
		},
	}
	ctx := context.WithValue(r.Context(), auth.ClaimsContextKey, claims)
	return r.WithContext(ctx)
}
