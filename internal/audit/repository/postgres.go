package repository

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-iam/internal/audit/domain"
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

// NewPostgresRepository returns an audit event repository that uses the given db for persistence.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, action, resource, ip, metadata, created_at
		 FROM audit_events WHERE id = $1`, id)
	return scanEvent(row)
}

// ListByTenant returns audit events for the given tenant, newest first,
// paginated by limit and offset.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, user_id, action, resource, ip, metadata, created_at
		 FROM audit_events WHERE tenant_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create persists the audit event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditEvent) error {
	uid := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	meta := sql.NullString{String: e.Metadata, Valid: e.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, tenant_id, user_id, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TenantID, uid, e.Action, e.Resource, e.IP, meta, e.CreatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.AuditEvent, error) {
	var e domain.AuditEvent
	var uid, meta sql.NullString
	err := row.Scan(&e.ID, &e.TenantID, &uid, &e.Action, &e.Resource, &e.IP, &meta, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.UserID = uid.String
	e.Metadata = meta.String
	return &e, nil
}
