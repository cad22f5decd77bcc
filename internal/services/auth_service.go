package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/models"
	pkgauth "github.com/danielmv21/fitpulse/pkg/auth"
	pkglogger "github.com/danielmv21/fitpulse/pkg/logger"
)

// AccountRepository defines the credential store operations the orchestrator
// needs. The store is the single source of truth for account state and the
// refresh-token hash.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRefreshTokenHash(ctx context.Context, id, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error
	ClearRefreshTokenHash(ctx context.Context, id string) error
	CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error
}

// ProfileChecker reports whether an account already owns a profile
type ProfileChecker interface {
	Exists(ctx context.Context, accountID string) (bool, error)
}

// AuthService composes the hasher, token manager, state machine and
// credential store into the account authentication flows. It is the only
// service the HTTP layer talks to for auth.
type AuthService struct {
	accounts    AccountRepository
	profiles    ProfileChecker
	tm          *auth.TokenManager
	mail        EmailSender
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountRepository,
	profiles ProfileChecker,
	tm *auth.TokenManager,
	mail EmailSender,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:    accounts,
		profiles:    profiles,
		tm:          tm,
		mail:        mail,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegisterResult is returned by Register
type RegisterResult struct {
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

// Register creates a new account in the unprofiled state.
func (s *AuthService) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if existing != nil {
		if stateErr := existing.CheckOperational(); stateErr != nil {
			return nil, stateErr
		}
		if existing.Status == models.StatusUnprofiled {
			// Account exists but never finished setup; point the client at
			// profile completion instead of a bare conflict.
			return nil, fmt.Errorf("%w: %w", models.ErrAccountUnprofiled, models.ErrConflict)
		}
		s.logger.Info("registration rejected: email already registered")
		return nil, models.ErrConflict
	}

	passwordHash, err := pkgauth.HashSecret(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		Status:       models.StatusUnprofiled,
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Mail delivery is best-effort and must not delay or fail registration.
	go func(email string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mail.SendWelcomeEmail(ctx, email); err != nil {
			s.logger.Error("failed to send welcome email", slog.Any("error", err))
		}
	}(created.Email)

	s.logger.Info("account registered", slog.String("account_id", created.ID))
	s.auditLogger.LogAccountAction("account_registered", created.ID, nil)

	return &RegisterResult{
		AccountID: created.ID,
		Message:   "account created, complete profile setup to activate it",
	}, nil
}

// CompleteProfileSetup creates the profile and moves the account from
// unprofiled to active. Running it twice is a conflict, not a no-op.
func (s *AuthService) CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("invalid account id: %w", models.ErrBadRequest)
		}
		s.logger.Error("failed to load account for profile setup", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := account.CheckOperational(); err != nil {
		return err
	}

	hasProfile, err := s.profiles.Exists(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to check for existing profile", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if hasProfile {
		return models.ErrProfileAlreadySetUp
	}
	if account.Status == models.StatusActive {
		return models.ErrAccountAlreadySetUp
	}

	if !account.Status.CanTransition(models.StatusActive) {
		return fmt.Errorf("account cannot be activated from status %q: %w", account.Status, models.ErrConflict)
	}

	if err := s.accounts.CompleteProfileSetup(ctx, accountID, profile); err != nil {
		s.logger.Error("failed to complete profile setup", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("profile setup completed", slog.String("account_id", accountID))
	s.auditLogger.LogAccountAction("profile_completed", accountID, nil)
	return nil
}

// SignIn authenticates an account by email and password and starts a
// refresh session. Unknown email, missing password hash and a failed verify
// all collapse into the same unauthorized error: no account-existence
// oracle.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("sign-in failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "sign_in_failed",
				FailureReason: "invalid_credentials",
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := account.CheckOperational(); err != nil {
		s.logger.Info("sign-in blocked by account state",
			slog.String("account_id", account.ID),
			slog.String("status", string(account.Status)))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "sign_in_failed",
			AccountID:     account.ID,
			FailureReason: "account_blocked",
		})
		return nil, err
	}

	if !account.HasPassword() {
		// Federated-only account; same generic rejection as a bad password.
		s.logger.Info("sign-in failed: invalid credentials")
		return nil, models.ErrUnauthorized
	}

	ok, err := pkgauth.VerifySecret(password, account.PasswordHash)
	if err != nil {
		s.logger.Error("password verification error", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !ok {
		s.logger.Info("sign-in failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "sign_in_failed",
			AccountID:     account.ID,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrUnauthorized
	}

	pair, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account signed in", slog.String("account_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "sign_in_success",
		AccountID: account.ID,
		Success:   true,
	})

	return pair, nil
}

// issueSession generates a token pair and persists the refresh hash,
// replacing whatever session existed before.
func (s *AuthService) issueSession(ctx context.Context, account *models.Account) (*models.TokenPair, error) {
	accessToken, err := s.tm.GenerateAccessToken(account)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(account)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshHash, err := pkgauth.HashSecret(refreshToken)
	if err != nil {
		s.logger.Error("failed to hash refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.accounts.SetRefreshTokenHash(ctx, account.ID, refreshHash); err != nil {
		s.logger.Error("failed to persist refresh token hash", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    account.ID,
	}, nil
}

// RefreshToken rotates a refresh session. The presented token is checked
// against the stored hash, so a token that was already rotated (or cleared
// by logout) fails even inside its signed lifetime. A refresh token is
// usable exactly once.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account not found for token refresh", slog.String("account_id", claims.Subject))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account for token refresh", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.RefreshTokenHash == "" {
		// Logged out, or never signed in.
		return nil, models.ErrUnauthorized
	}

	ok, err := pkgauth.VerifySecret(refreshToken, account.RefreshTokenHash)
	if err != nil {
		s.logger.Error("refresh token verification error", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !ok {
		// Superseded by a newer token: possible replay of a stale one.
		s.logger.Warn("refresh token does not match stored hash", slog.String("account_id", account.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "refresh_failed",
			AccountID:     account.ID,
			FailureReason: "stale_refresh_token",
		})
		return nil, models.ErrUnauthorized
	}

	if err := account.CheckOperational(); err != nil {
		s.logger.Info("token refresh blocked by account state",
			slog.String("account_id", account.ID),
			slog.String("status", string(account.Status)))
		return nil, err
	}

	accessToken, err := s.tm.GenerateAccessToken(account)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(account)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newHash, err := pkgauth.HashSecret(newRefreshToken)
	if err != nil {
		s.logger.Error("failed to hash refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Conditional swap on the old hash: of two concurrent refreshes with the
	// same token, exactly one lands this update. The loser gets unauthorized.
	if err := s.accounts.RotateRefreshTokenHash(ctx, account.ID, account.RefreshTokenHash, newHash); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			s.logger.Warn("lost refresh rotation race", slog.String("account_id", account.ID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to rotate refresh token hash", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("refresh token rotated", slog.String("account_id", account.ID))

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		AccountID:    account.ID,
	}, nil
}

// Logout ends the refresh session. Outstanding refresh tokens become
// unusable immediately; access tokens ride out their short expiry.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("invalid account id: %w", models.ErrBadRequest)
		}
		s.logger.Error("failed to load account for logout", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := account.CheckOperational(); err != nil {
		return err
	}

	if err := s.accounts.ClearRefreshTokenHash(ctx, accountID); err != nil {
		s.logger.Error("failed to clear refresh token hash", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account logged out", slog.String("account_id", accountID))
	return nil
}

// ChangePassword re-verifies the current password before storing the new
// one. The refresh session is cleared alongside, so stolen refresh tokens
// die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("invalid account id: %w", models.ErrBadRequest)
		}
		s.logger.Error("failed to load account for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := account.CheckOperational(); err != nil {
		return err
	}

	if !account.HasPassword() {
		return models.ErrUnauthorized
	}

	ok, err := pkgauth.VerifySecret(currentPassword, account.PasswordHash)
	if err != nil {
		s.logger.Error("password verification error", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !ok {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			AccountID:     account.ID,
			FailureReason: "invalid_credentials",
		})
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	newHash, err := pkgauth.HashSecret(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, newHash); err != nil {
		s.logger.Error("failed to update password", slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("account_id", accountID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_changed",
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

// SignInWithGoogle handles the federated sign-in handoff: the identity has
// already been verified upstream. Find-or-create, then the same state guard
// and session issuance as password sign-in.
func (s *AuthService) SignInWithGoogle(ctx context.Context, email string) (*models.TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to get account by email", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		// First federated sign-in: create the account without a password.
		account, err = s.accounts.Create(ctx, &models.Account{
			Email:  email,
			Role:   models.RoleUser,
			Status: models.StatusUnprofiled,
		})
		if err != nil {
			s.logger.Error("failed to create federated account", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.auditLogger.LogAccountAction("federated_account_created", account.ID, nil)
	}

	if err := account.CheckOperational(); err != nil {
		return nil, err
	}

	pair, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("federated sign-in", slog.String("account_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "federated_sign_in_success",
		AccountID: account.ID,
		Success:   true,
	})

	return pair, nil
}
