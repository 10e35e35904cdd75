package repository

import (
	"context"

	"marketplace-iam/internal/user/domain"
)

// Repository defines persistence for user accounts and their role grants.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the oldest account carrying email across tenants,
	// or nil if none. Login identifies by bare email; registration-time
	// uniqueness is per tenant via GetByEmailAndTenant.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error)
	GetByPhoneAndTenant(ctx context.Context, phone, tenantID string) (*domain.User, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	GrantRole(ctx context.Context, userID string, role domain.Role) error
	ListRoles(ctx context.Context, userID string) ([]domain.Role, error)
}
