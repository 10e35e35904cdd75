package repository

import (
	"context"

	"marketplace-iam/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AuditEvent, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditEvent, error)
	Create(ctx context.Context, e *domain.AuditEvent) error
}
