package kernel

import (
	"context"
	"errors"
	"time"

	"marketplace-iam/internal/security"
)

// ErrRevoked is returned when a token fails a revocation check.
var ErrRevoked = errors.New("token revoked")

// KeySource provides the verification key set. Refresh is invoked when a
// token references an unknown kid; sources with no remote state may no-op.
type KeySource interface {
	KeySet(ctx context.Context) (security.StaticKeySet, error)
	Refresh(ctx context.Context) error
}

// RevocationChecker answers whether a token or its user has been revoked.
// Implemented by the revocation index.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokedByEpoch(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// AuthCore bundles everything a validator needs: the token verifier, the key
// source and the revocation checker. One value is constructed at process
// start and injected wherever requests are validated.
type AuthCore struct {
	minter      *security.TokenMinter
	keys        KeySource
	revocations RevocationChecker
}

// NewAuthCore returns an AuthCore over the given key source and revocation
// checker.
func NewAuthCore(minter *security.TokenMinter, keys KeySource, revocations RevocationChecker) *AuthCore {
	return &AuthCore{minter: minter, keys: keys, revocations: revocations}
}

// VerifyToken checks the token's signature and expiry against the current key
// set. An unknown kid triggers one immediate key refresh before the failure
// is final, so freshly rotated keys verify without waiting for the periodic
// refresh.
func (a *AuthCore) VerifyToken(ctx context.Context, token string) (*security.AccessClaims, error) {
	keys, err := a.keys.KeySet(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	claims, err := a.minter.Verify(token, keys, now)
	if !errors.Is(err, security.ErrUnknownKid) {
		return claims, err
	}
	if rerr := a.keys.Refresh(ctx); rerr != nil {
		return nil, err
	}
	keys, kerr := a.keys.KeySet(ctx)
	if kerr != nil {
		return nil, err
	}
	return a.minter.Verify(token, keys, now)
}

// CheckRevocation rejects tokens whose jti is blacklisted or whose issue time
// falls at or before the user's revocation epoch. Store failures surface per
// the index's fail mode.
func (a *AuthCore) CheckRevocation(ctx context.Context, claims *security.AccessClaims) error {
	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrRevoked
	}
	if claims.IssuedAt == nil {
		return ErrRevoked
	}
	revoked, err = a.revocations.RevokedByEpoch(ctx, claims.Subject, claims.IssuedAt.Time)
	if err != nil {
		return err
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}

// Validate runs signature verification and revocation checks and returns the
// verified claims.
func (a *AuthCore) Validate(ctx context.Context, token string) (*security.AccessClaims, error) {
	claims, err := a.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := a.CheckRevocation(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// PrincipalFromClaims builds the request principal from verified claims only.
func PrincipalFromClaims(claims *security.AccessClaims) Principal {
	return Principal{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Roles:    claims.Roles,
	}
}
