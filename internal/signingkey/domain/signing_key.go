package domain

import (
	"errors"
	"time"
)

// SigningKey is one asymmetric key pair in the authority's signing pool.
// Private material never leaves the authority process; only the public half
// is published.
type SigningKey struct {
	ID            string
	Kid           string
	Algorithm     string
	PublicKeyPEM  string
	PrivateKeyPEM string
	CreatedAt     time.Time
	ExpiresAt     *time.Time // nil means never expires
}

// ActiveAt reports whether the key is usable for verification at t.
func (k *SigningKey) ActiveAt(t time.Time) bool {
	return k.ExpiresAt == nil || k.ExpiresAt.After(t)
}

// Validate validates the key for persistence. Returns an error describing the first validation failure.
func (k *SigningKey) Validate() error {
	if k.Kid == "" {
		return errors.New("kid is required")
	}
	if k.Algorithm == "" {
		return errors.New("algorithm is required")
	}
	if k.PublicKeyPEM == "" || k.PrivateKeyPEM == "" {
		return errors.New("key material is required")
	}
	return nil
}
