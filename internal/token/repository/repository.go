package repository

import (
	"context"

	"marketplace-iam/internal/token/domain"
)

// Repository defines persistence for refresh tokens.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	// RevokeAllForUser marks every non-revoked token of the user revoked and
	// returns how many rows changed.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}
