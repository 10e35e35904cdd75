package repository

import (
	"context"
	"time"

	"marketplace-iam/internal/signingkey/domain"
)

// Repository defines persistence for signing keys.
type Repository interface {
	Create(ctx context.Context, k *domain.SigningKey) error
	GetByKid(ctx context.Context, kid string) (*domain.SigningKey, error)
	// ListActive returns keys whose expiry is null or strictly after at,
	// newest first.
	ListActive(ctx context.Context, at time.Time) ([]*domain.SigningKey, error)
}
