package repositories

import (
	"context"

	"github.com/danielmv21/fitpulse/internal/database"
	"github.com/danielmv21/fitpulse/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{pool: db.Pool}
}

func (r *ProfileRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Profile, error) {
	query := `
		SELECT id, account_id, name, birth_date, created_at, updated_at
		FROM profiles WHERE account_id = $1`

	var profile models.Profile
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&profile.ID, &profile.AccountID, &profile.Name, &profile.BirthDate,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &profile, nil
}

// Exists reports whether an account already has a profile
func (r *ProfileRepository) Exists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE account_id = $1)`, accountID,
	).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}
