package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/config"
	"github.com/danielmv21/fitpulse/internal/middleware"
	"github.com/danielmv21/fitpulse/internal/models"
	"github.com/danielmv21/fitpulse/internal/services"
	pkghttp "github.com/danielmv21/fitpulse/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password string) (*services.RegisterResult, error)
	CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error
	SignIn(ctx context.Context, email, password string) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error
	SignInWithGoogle(ctx context.Context, email string) (*models.TokenPair, error)
}

// AttemptRecorder is the write side of the failed-attempt limiter
type AttemptRecorder interface {
	RecordFailedAttempt(key string, policy config.RateLimitPolicy) services.RateLimitResult
	RecordSuccessfulAttempt(key string)
	Status(key string) services.RateLimitResult
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	limiter  AttemptRecorder
	policies config.RateLimitConfig
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, limiter AttemptRecorder, policies config.RateLimitConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		limiter:  limiter,
		policies: policies,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CompleteProfileSetupRequest carries the profile that activates an account
type CompleteProfileSetupRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Name      string `json:"name" validate:"required,min=1,max=100"`
	BirthDate string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents the request body for logout
type LogoutRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	AccountID       string `json:"account_id" validate:"required,uuid"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// GoogleSignInRequest carries an externally verified federated identity
type GoogleSignInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// MessageResponse is a generic success payload
type MessageResponse struct {
	Message string `json:"message"`
}

// RateLimitStatusResponse reports the limiter state for one key
type RateLimitStatusResponse struct {
	Key               string `json:"key"`
	Blocked           bool   `json:"blocked"`
	Attempts          int    `json:"attempts"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// writeServiceError maps service-layer sentinel errors onto HTTP responses.
// Credential failures all read the same generic message so responses do not
// reveal which emails exist. Inactive and suspended accounts get distinct
// messages: telling the two states apart reveals nothing extra about account
// existence, and the caller needs to know which recovery path applies.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrAccountUnprofiled):
		pkghttp.WriteConflict(w, "Account exists but has no profile, complete profile setup")
	case errors.Is(err, models.ErrProfileAlreadySetUp):
		pkghttp.WriteConflict(w, "Profile has already been set up")
	case errors.Is(err, models.ErrAccountAlreadySetUp):
		pkghttp.WriteConflict(w, "Account is already active")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Email is already registered")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteUnauthorized(w, "Account is inactive")
	case errors.Is(err, models.ErrAccountSuspended):
		pkghttp.WriteUnauthorized(w, "Account is suspended")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Forbidden")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many failed attempts, try again later")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// attemptKey returns the limiter key stored by the guard, or derives the
// fallback so recording still works when the guard is not mounted.
func (h *AuthHandler) attemptKey(r *http.Request, email string) string {
	if key, ok := middleware.AttemptKeyFromContext(r.Context()); ok {
		return key
	}
	if email != "" {
		return "email:" + email
	}
	return "ip:" + pkghttp.ExtractClientIP(r, h.ipConfig)
}

// Register handles account registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	result, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, result)
}

// CompleteProfileSetup creates the profile and activates the account
func (h *AuthHandler) CompleteProfileSetup(w http.ResponseWriter, r *http.Request) {
	var req CompleteProfileSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	profile := &models.Profile{Name: strings.TrimSpace(req.Name)}
	if req.BirthDate != "" {
		birthDate, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			pkghttp.WriteBadRequest(w, "birth_date must be formatted YYYY-MM-DD")
			return
		}
		profile.BirthDate = &birthDate
	}

	if err := h.service.CompleteProfileSetup(r.Context(), req.AccountID, profile); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Profile setup completed, account is active"})
}

// Login handles password sign-in. Failed credential attempts count against
// the limiter key; a successful sign-in clears the slate.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	key := h.attemptKey(r, req.Email)

	pair, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			h.limiter.RecordFailedAttempt(key, h.policies.Login)
		}
		writeServiceError(w, err)
		return
	}

	h.limiter.RecordSuccessfulAttempt(key)
	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// RefreshToken rotates a refresh session
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// Logout ends the caller's refresh session. A non-admin may only log out
// the account they are authenticated as.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if !callerMayAct(r, req.AccountID) {
		pkghttp.WriteForbidden(w, "Cannot act on another account")
		return
	}

	if err := h.service.Logout(r.Context(), req.AccountID); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// ChangePassword rotates the account password. Failed current-password
// checks count against the limiter under the password-change policy.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if !callerMayAct(r, req.AccountID) {
		pkghttp.WriteForbidden(w, "Cannot act on another account")
		return
	}

	key := h.attemptKey(r, "")

	if err := h.service.ChangePassword(r.Context(), req.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			h.limiter.RecordFailedAttempt(key, h.policies.PasswordChange)
		}
		writeServiceError(w, err)
		return
	}

	h.limiter.RecordSuccessfulAttempt(key)
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed"})
}

// GoogleSignIn handles the federated identity handoff
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req GoogleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	pair, err := h.service.SignInWithGoogle(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// RateLimitStatus is an admin diagnostic over the failed-attempt limiter
func (h *AuthHandler) RateLimitStatus(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		pkghttp.WriteBadRequest(w, "key query parameter is required")
		return
	}

	status := h.limiter.Status(key)
	pkghttp.WriteJSON(w, http.StatusOK, RateLimitStatusResponse{
		Key:               key,
		Blocked:           status.Blocked,
		Attempts:          status.Attempts,
		RetryAfterSeconds: int(status.RetryAfter.Seconds()),
	})
}

// callerMayAct reports whether the authenticated caller may act on the
// target account: the account itself, or any admin.
func callerMayAct(r *http.Request, accountID string) bool {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Subject == accountID || claims.Role == models.RoleAdmin
}
