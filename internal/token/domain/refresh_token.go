package domain

import (
	"errors"
	"time"
)

// RefreshToken is the persisted record of one issued refresh token. Only the
// deterministic hash of the cleartext is stored; lookup is by hash.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// ActiveAt reports whether the token is usable at t.
func (r *RefreshToken) ActiveAt(t time.Time) bool {
	return !r.Revoked && r.ExpiresAt.After(t)
}

// Validate validates the token for persistence. Returns an error describing the first validation failure.
func (r *RefreshToken) Validate() error {
	if r.UserID == "" {
		return errors.New("user id is required")
	}
	if r.TokenHash == "" {
		return errors.New("token hash is required")
	}
	if r.ExpiresAt.IsZero() {
		return errors.New("expiry is required")
	}
	return nil
}
