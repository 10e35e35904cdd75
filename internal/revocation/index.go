package revocation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blacklistPrefix = "jwt:blacklist:"
	epochPrefix     = "user:revocation-epoch:"
)

// ErrUnavailable is returned when the revocation store cannot answer and the
// policy requires failing closed.
var ErrUnavailable = errors.New("revocation store unavailable")

// FailMode selects the read-path behavior when the store is unreachable.
// Write paths (logout) always fail closed regardless of mode.
type FailMode string

const (
	FailOpen   FailMode = "open"
	FailClosed FailMode = "closed"
)

// ParseFailMode validates s and defaults to FailClosed on empty input.
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(s) {
	case FailOpen, FailClosed:
		return FailMode(s), nil
	case "":
		return FailClosed, nil
	default:
		return "", fmt.Errorf("revocation: unknown fail mode %q", s)
	}
}

// kvStore is the slice of the backing store the index needs.
type kvStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// Index records revoked access tokens by jti and per-user revocation epochs.
// Entries live in a TTL-keyed distributed store so revocation state expires
// together with the tokens it covers.
type Index struct {
	store    kvStore
	timeout  time.Duration
	epochTTL time.Duration
	failMode FailMode
}

// NewIndex returns an Index over the given client. timeout bounds every
// lookup; epochTTL should match the refresh-token maximum lifetime so an
// epoch outlives every token it must reject.
func NewIndex(client *redis.Client, timeout, epochTTL time.Duration, mode FailMode) *Index {
	return &Index{
		store:    &redisKV{client: client},
		timeout:  timeout,
		epochTTL: epochTTL,
		failMode: mode,
	}
}

// RevokeToken marks the jti revoked for ttl. A non-positive ttl means the
// token has already expired and nothing is stored. Always fails closed.
func (i *Index) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	if err := i.store.Set(ctx, blacklistPrefix+jti, "revoked", ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the jti has been revoked. On store failure the
// configured fail mode applies: open treats the token as live and logs the
// divergence, closed returns ErrUnavailable.
func (i *Index) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	revoked, err := i.store.Exists(ctx, blacklistPrefix+jti)
	if err != nil {
		if i.failMode == FailOpen {
			log.Printf("revocation: store unreachable, failing open for jti lookup: %v", err)
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return revoked, nil
}

// SetUserEpoch records t as the user's revocation epoch: tokens issued before
// it are rejected on validation. Always fails closed.
func (i *Index) SetUserEpoch(ctx context.Context, userID string, t time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	value := strconv.FormatInt(t.Unix(), 10)
	if err := i.store.Set(ctx, epochPrefix+userID, value, i.epochTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokedByEpoch reports whether a token issued at issuedAt predates the
// user's revocation epoch. Fail-mode handling matches IsRevoked.
func (i *Index) RevokedByEpoch(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	value, found, err := i.store.Get(ctx, epochPrefix+userID)
	if err != nil {
		if i.failMode == FailOpen {
			log.Printf("revocation: store unreachable, failing open for epoch lookup: %v", err)
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !found {
		return false, nil
	}
	epoch, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("revocation: corrupt epoch for user %s: %v", userID, err)
	}
	// Same-second issuance counts as before the epoch: LogoutAll must cover
	// the token that invoked it.
	return issuedAt.Unix() <= epoch, nil
}

// Ping reports store connectivity, for health checks.
func (i *Index) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	return i.store.Ping(ctx)
}
