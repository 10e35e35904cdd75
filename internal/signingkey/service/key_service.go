package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace-iam/internal/security"
	"marketplace-iam/internal/signingkey/domain"
)

// ErrNoActiveKey is returned when the pool holds no usable signing key.
var ErrNoActiveKey = errors.New("no active signing key")

// KeyRepo is the persistence this service needs.
type KeyRepo interface {
	Create(ctx context.Context, k *domain.SigningKey) error
	ListActive(ctx context.Context, at time.Time) ([]*domain.SigningKey, error)
}

// Service manages the signing-key pool lifecycle: bootstrap on startup,
// primary selection for minting, overlap-based rotation. Old keys keep
// verifying issued tokens until their expiry passes.
type Service struct {
	keys      KeyRepo
	keyExpiry time.Duration
	keyBits   int
}

// NewService returns a key lifecycle service. keyExpiry bounds each generated
// key's verification window; zero means keys never expire.
func NewService(keys KeyRepo, keyExpiry time.Duration) *Service {
	return &Service{keys: keys, keyExpiry: keyExpiry, keyBits: 2048}
}

// EnsureBootstrap guarantees at least one active key exists, creating one if
// the pool is empty. Invoked at authority startup before serving.
func (s *Service) EnsureBootstrap(ctx context.Context) (*domain.SigningKey, error) {
	now := time.Now().UTC()
	active, err := s.keys.ListActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}
	if len(active) > 0 {
		return active[0], nil
	}
	return s.generate(ctx, now)
}

// Rotate mints a fresh key pair and makes it the primary. Previously issued
// tokens keep verifying against the old keys until those expire.
func (s *Service) Rotate(ctx context.Context) (*domain.SigningKey, error) {
	return s.generate(ctx, time.Now().UTC())
}

// ActiveKeys returns all keys usable for verification at the given instant,
// newest first.
func (s *Service) ActiveKeys(ctx context.Context, at time.Time) ([]*domain.SigningKey, error) {
	return s.keys.ListActive(ctx, at)
}

// Primary returns the minting key: the most recently created active key,
// with its private half parsed and ready to sign.
func (s *Service) Primary(ctx context.Context, at time.Time) (security.SigningKeyRef, error) {
	active, err := s.keys.ListActive(ctx, at)
	if err != nil {
		return security.SigningKeyRef{}, fmt.Errorf("list active keys: %w", err)
	}
	if len(active) == 0 {
		return security.SigningKeyRef{}, ErrNoActiveKey
	}
	signer, err := security.ParsePrivateKey(active[0].PrivateKeyPEM)
	if err != nil {
		return security.SigningKeyRef{}, fmt.Errorf("parse primary key %s: %w", active[0].Kid, err)
	}
	return security.SigningKeyRef{Kid: active[0].Kid, Signer: signer}, nil
}

// KeySet returns the kid-to-public-key mapping of every active key, for
// authority-side token verification.
func (s *Service) KeySet(ctx context.Context, at time.Time) (security.StaticKeySet, error) {
	active, err := s.keys.ListActive(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}
	set := security.StaticKeySet{}
	for _, k := range active {
		pub, err := security.ParsePublicKey(k.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse public key %s: %w", k.Kid, err)
		}
		set[k.Kid] = pub
	}
	return set, nil
}

func (s *Service) generate(ctx context.Context, now time.Time) (*domain.SigningKey, error) {
	privPEM, pubPEM, err := security.GenerateKeyPair(s.keyBits)
	if err != nil {
		return nil, err
	}
	key := &domain.SigningKey{
		ID:            uuid.New().String(),
		Kid:           security.NewKID(now),
		Algorithm:     "RS256",
		PublicKeyPEM:  pubPEM,
		PrivateKeyPEM: privPEM,
		CreatedAt:     now,
	}
	if s.keyExpiry > 0 {
		expires := now.Add(s.keyExpiry)
		key.ExpiresAt = &expires
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("persist signing key: %w", err)
	}
	return key, nil
}
