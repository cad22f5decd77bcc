package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/danielmv21/fitpulse/internal/database"
	"github.com/danielmv21/fitpulse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db, pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, email, password_hash, refresh_token_hash, role, status, created_at, updated_at`

// scanAccountRow handles nullable fields and populates an Account from a row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var passwordHash, refreshTokenHash *string

	err := scanner.Scan(
		&account.ID, &account.Email, &passwordHash, &refreshTokenHash,
		&account.Role, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		account.PasswordHash = *passwordHash
	}
	if refreshTokenHash != nil {
		account.RefreshTokenHash = *refreshTokenHash
	}

	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Role == "" {
		account.Role = models.RoleUser
	}
	if account.Status == "" {
		account.Status = models.StatusUnprofiled
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	var passwordHash *string
	if account.PasswordHash != "" {
		passwordHash = &account.PasswordHash
	}

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, passwordHash, account.Role, account.Status,
		account.CreatedAt, account.UpdatedAt,
	))
}

// UpdatePassword stores a new password hash and ends any active refresh
// session in the same statement.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1, refresh_token_hash = NULL, updated_at = $2
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetRefreshTokenHash unconditionally stores the hash of a freshly issued
// refresh token (sign-in path: there is no previous token to compare).
func (r *AccountRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	query := `UPDATE accounts SET refresh_token_hash = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, hash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RotateRefreshTokenHash replaces the stored refresh hash only if it still
// equals oldHash. Two concurrent refreshes presenting the same token race on
// this conditional update; exactly one wins, the other sees ErrUnauthorized.
func (r *AccountRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $1, updated_at = $2
		WHERE id = $3 AND refresh_token_hash = $4`

	tag, err := r.pool.Exec(ctx, query, newHash, time.Now(), id, oldHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUnauthorized
	}
	return nil
}

// ClearRefreshTokenHash removes the stored refresh hash, invalidating any
// outstanding refresh token before its natural expiry.
func (r *AccountRepository) ClearRefreshTokenHash(ctx context.Context, id string) error {
	query := `UPDATE accounts SET refresh_token_hash = NULL, updated_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateStatus persists a status change. Callers run the transition table
// first; the repository does not re-check it.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CompleteProfileSetup inserts the profile and activates the account in one
// transaction, so a crash between the two cannot leave an active account
// without a profile.
func (r *AccountRepository) CompleteProfileSetup(ctx context.Context, accountID string, profile *models.Profile) error {
	profile.ID = uuid.New().String()
	profile.AccountID = accountID

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, account_id, name, birth_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			profile.ID, profile.AccountID, profile.Name, profile.BirthDate,
			profile.CreatedAt, profile.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", database.MapPostgresError(err))
		}

		tag, err := tx.Exec(ctx, `
			UPDATE accounts SET status = $1, updated_at = $2 WHERE id = $3`,
			models.StatusActive, now, accountID,
		)
		if err != nil {
			return fmt.Errorf("failed to activate account: %w", database.MapPostgresError(err))
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}
