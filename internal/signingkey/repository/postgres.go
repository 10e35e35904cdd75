package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplace-iam/internal/signingkey/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a signing-key repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the key to the database. The key must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, k *domain.SigningKey) error {
	expires := sql.NullTime{}
	if k.ExpiresAt != nil {
		expires = sql.NullTime{Time: *k.ExpiresAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO signing_keys (id, kid, algorithm, public_key_pem, private_key_pem, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		k.ID, k.Kid, k.Algorithm, k.PublicKeyPEM, k.PrivateKeyPEM, k.CreatedAt, expires,
	)
	return err
}

// GetByKid returns the key with the given kid, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByKid(ctx context.Context, kid string) (*domain.SigningKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kid, algorithm, public_key_pem, private_key_pem, created_at, expires_at
		 FROM signing_keys WHERE kid = $1`, kid)
	k, err := scanKey(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return k, nil
}

// ListActive returns keys that have not expired at the given instant, newest first.
func (r *PostgresRepository) ListActive(ctx context.Context, at time.Time) ([]*domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kid, algorithm, public_key_pem, private_key_pem, created_at, expires_at
		 FROM signing_keys WHERE expires_at IS NULL OR expires_at > $1
		 ORDER BY created_at DESC`, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*domain.SigningKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*domain.SigningKey, error) {
	var (
		k       domain.SigningKey
		expires sql.NullTime
	)
	if err := row.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PublicKeyPEM, &k.PrivateKeyPEM, &k.CreatedAt, &expires); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		k.ExpiresAt = &t
	}
	return &k, nil
}
