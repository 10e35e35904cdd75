package repository

import (
	"context"

	"marketplace-iam/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	Create(ctx context.Context, t *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error
}
