package repository

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-iam/internal/profile/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can join a
// caller-managed transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository returns a profile repository that uses the given db for persistence.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserID returns the profile for userID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, tenant_id, display_name, bio, avatar_url, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID)
	var p domain.Profile
	err := row.Scan(&p.UserID, &p.TenantID, &p.DisplayName, &p.Bio, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert creates the profile or replaces its mutable fields. Tenant never
// changes after the first write.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, tenant_id, display_name, bio, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE
		 SET display_name = EXCLUDED.display_name,
		     bio = EXCLUDED.bio,
		     avatar_url = EXCLUDED.avatar_url,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.TenantID, p.DisplayName, p.Bio, p.AvatarURL, p.CreatedAt, p.UpdatedAt,
	)
	return err
}
