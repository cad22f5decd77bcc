package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/danielmv21/fitpulse/internal/models"
	pkglogger "github.com/danielmv21/fitpulse/pkg/logger"
)

// MockAccountRepository is a configurable mock for AccountRepository
type MockAccountRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc                 func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePasswordFunc         func(ctx context.Context, id, passwordHash string) error
	SetRefreshTokenHashFunc    func(ctx context.Context, id, hash string) error
	RotateRefreshTokenHashFunc func(ctx context.Context, id, oldHash, newHash string) error
	ClearRefreshTokenHashFunc  func(ctx context.Context, id string) error
	CompleteProfileSetupFunc   func(ctx context.Context, accountID string, profile *models.Profile) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	account.ID = "generated-id"
	return account, nil
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockAccountRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	if m.SetRefreshTokenHashFunc != nil {
		return m.SetRefreshTokenHashFunc(ctx, id, hash)
	}
	return nil
}

func (m *MockAccountRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error {
	if m.RotateRefreshTokenHashFunc != nil {
		return m.RotateRefreshTokenHashFunc(ctx, id, oldHash, newHash)
	}
	return nil
}

func (m *MockAccountRepository) ClearRefreshTokenHash(ctx context.Context, id string) error {
	if m.ClearRefreshTokenHashFunc != nil {
		return m.ClearRefreshTokenHashFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error {
	if m.CompleteProfileSetupFunc != nil {
		return m.CompleteProfileSetupFunc(ctx, accountID, profile)
	}
	return nil
}

// MockProfileChecker is a configurable mock for ProfileChecker
type MockProfileChecker struct {
	ExistsFunc func(ctx context.Context, accountID string) (bool, error)
}

func (m *MockProfileChecker) Exists(ctx context.Context, accountID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, accountID)
	}
	return false, nil
}

// MockEmailSender records sent emails instead of delivering them
type MockEmailSender struct {
	SendWelcomeEmailFunc func(ctx context.Context, email string) error
}

func (m *MockEmailSender) SendWelcomeEmail(ctx context.Context, email string) error {
	if m.SendWelcomeEmailFunc != nil {
		return m.SendWelcomeEmailFunc(ctx, email)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}
