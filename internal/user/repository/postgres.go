package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"marketplace-iam/internal/user/domain"
)

var (
	// ErrEmailTaken is returned when (email, tenant) already exists.
	ErrEmailTaken = errors.New("email already registered in tenant")
	// ErrPhoneTaken is returned when (phone, tenant) already exists.
	ErrPhoneTaken = errors.New("phone already registered in tenant")
)

const (
	uniqueViolation      = "23505"
	emailTenantIndexName = "users_email_tenant_idx"
	phoneTenantIndexName = "users_phone_tenant_idx"
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

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the user. Tenant-scoped uniqueness violations surface as
// ErrEmailTaken or ErrPhoneTaken. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	email := sql.NullString{String: u.Email, Valid: u.Email != ""}
	phone := sql.NullString{String: u.Phone, Valid: u.Phone != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, phone, password_hash, salt, tenant_id, enabled, email_verified, phone_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, email, phone, u.PasswordHash, u.Salt, u.TenantID, u.Enabled, u.EmailVerified, u.PhoneVerified, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case emailTenantIndexName:
				return ErrEmailTaken
			case phoneTenantIndexName:
				return ErrPhoneTaken
			}
		}
		return err
	}
	return nil
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail returns the oldest account carrying email, or nil if none.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email = $1 ORDER BY created_at ASC LIMIT 1`, email)
}

// GetByPhone returns the oldest account carrying phone, or nil if none.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE phone = $1 ORDER BY created_at ASC LIMIT 1`, phone)
}

// GetByEmailAndTenant returns the account for (email, tenant), or nil if none.
func (r *PostgresRepository) GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email = $1 AND tenant_id = $2`, email, tenantID)
}

// GetByPhoneAndTenant returns the account for (phone, tenant), or nil if none.
func (r *PostgresRepository) GetByPhoneAndTenant(ctx context.Context, phone, tenantID string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE phone = $1 AND tenant_id = $2`, phone, tenantID)
}

// SetEnabled flips the account's enabled flag. Missing users are a no-op.
func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET enabled = $2, updated_at = $3 WHERE id = $1`,
		id, enabled, time.Now().UTC(),
	)
	return err
}

// GrantRole records a role for the user. Granting an already-held role is a no-op.
func (r *PostgresRepository) GrantRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_grants (user_id, role, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role, time.Now().UTC(),
	)
	return err
}

// ListRoles returns the user's roles in grant order.
func (r *PostgresRepository) ListRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role FROM role_grants WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

const userColumns = `id, email, phone, password_hash, salt, tenant_id, enabled, email_verified, phone_verified, created_at, updated_at`

func (r *PostgresRepository) getOne(ctx context.Context, clause string, args ...any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+clause, args...)
	var (
		u     domain.User
		email sql.NullString
		phone sql.NullString
	)
	err := row.Scan(&u.ID, &email, &phone, &u.PasswordHash, &u.Salt, &u.TenantID,
		&u.Enabled, &u.EmailVerified, &u.PhoneVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	return &u, nil
}
