package security

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned when a token cannot be parsed at all.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired is returned when a token's exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrUnknownKid is returned when a token's kid selects no published key.
	ErrUnknownKid = errors.New("unknown key id")
	// ErrBadSignature is returned when the signature does not verify.
	ErrBadSignature = errors.New("bad token signature")
)

// AccessClaims holds the JWT claims carried by every access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// SigningKeyRef pairs a private key with the kid under which its public half
// is published.
type SigningKeyRef struct {
	Kid    string
	Signer crypto.Signer
}

// KeySet resolves a kid to a verification key. Implemented by the signing-key
// service on the authority and by the cached key-set client on validators.
type KeySet interface {
	PublicKey(kid string) (crypto.PublicKey, bool)
}

// StaticKeySet is a fixed kid-to-public-key mapping.
type StaticKeySet map[string]crypto.PublicKey

// PublicKey implements KeySet.
func (s StaticKeySet) PublicKey(kid string) (crypto.PublicKey, bool) {
	pub, ok := s[kid]
	return pub, ok
}

// TokenMinter issues access and refresh tokens and extracts claims from
// access tokens. Access tokens are RS256-signed JWTs carrying sub, tenant_id,
// roles, jti, iat, exp and iss; refresh tokens are opaque high-entropy
// strings whose hash is persisted by the caller.
type TokenMinter struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenMinter returns a TokenMinter stamping the given issuer on every
// access token.
func NewTokenMinter(issuer string, accessTTL, refreshTTL time.Duration) *TokenMinter {
	return &TokenMinter{
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (m *TokenMinter) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *TokenMinter) RefreshTTL() time.Duration { return m.refreshTTL }

// MintAccess signs a new access token with key and returns the token string,
// its jti and its expiry. The jti is unique per issuance and serves as the
// revocation handle; the key's kid is embedded in the token header.
func (m *TokenMinter) MintAccess(key SigningKeyRef, userID, tenantID string, roles []string) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.New().String()
	now := time.Now().UTC()
	expiresAt = now.Add(m.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
		Roles:    roles,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = key.Kid
	token, err = t.SignedString(key.Signer)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, jti, expiresAt, nil
}

// MintRefresh returns a fresh opaque refresh token with 256 bits of
// randomness, base64url-encoded. The cleartext is handed to the client once;
// only its deterministic hash is stored.
func (m *TokenMinter) MintRefresh() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("mint refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ParseUnverified parses the token's header and claims without verifying the
// signature. Used where verification already happened or is intrinsic to the
// flow. Fails with ErrMalformed on garbage input.
func (m *TokenMinter) ParseUnverified(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Verify parses tokenString, resolves the header kid against keys, verifies
// the RS256 signature and asserts exp > now. Failures map to ErrMalformed,
// ErrUnknownKid, ErrBadSignature or ErrExpired.
func (m *TokenMinter) Verify(tokenString string, keys KeySet, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(m.issuer),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKid
		}
		pub, ok := keys.PublicKey(kid)
		if !ok {
			return nil, ErrUnknownKid
		}
		return pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKid):
			return nil, ErrUnknownKid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}
	if !token.Valid {
		return nil, ErrBadSignature
	}
	return claims, nil
}

// RemainingTTL returns how long the claims' token stays valid from now,
// clamped at zero. Used to size revocation entries.
func RemainingTTL(claims *AccessClaims, now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
