package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidInput is returned when a password or salt is empty or out of bounds.
	ErrInvalidInput = errors.New("invalid hashing input")
	// ErrInvalidHash is returned when a stored hash cannot be decoded.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion is returned when a stored hash was produced by an
	// unsupported argon2 version.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// HashParams defines the Argon2id cost parameters.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	HashLength  uint32
}

// DefaultHashParams returns interactive-login defaults (64 MiB, 3 passes).
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		HashLength:  32,
	}
}

// Hasher hashes and verifies passwords using Argon2id with an explicit
// per-user salt and a process-wide pepper. The pepper is mixed into the KDF
// input and never persisted. Callers must not log or persist plaintext
// passwords or the pepper.
type Hasher struct {
	params HashParams
	pepper string
}

// NewHasher returns a Hasher with the given parameters and pepper.
// Salt length must be in [8,64] and hash length in [16,64].
func NewHasher(params HashParams, pepper string) (*Hasher, error) {
	if pepper == "" {
		return nil, fmt.Errorf("hasher: pepper is required")
	}
	if params.SaltLength < 8 || params.SaltLength > 64 {
		return nil, fmt.Errorf("hasher: salt length %d out of range [8,64]", params.SaltLength)
	}
	if params.HashLength < 16 || params.HashLength > 64 {
		return nil, fmt.Errorf("hasher: hash length %d out of range [16,64]", params.HashLength)
	}
	if params.Iterations == 0 || params.Memory == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("hasher: iterations, memory and parallelism must be positive")
	}
	return &Hasher{params: params, pepper: pepper}, nil
}

// GenerateSalt returns a cryptographically random salt of the configured length.
func (h *Hasher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives an Argon2id hash of password. The KDF input is
// password || pepper || base64(salt); the returned string is the full
// $argon2id$v=..$m=..,t=..,p=..$salt$hash encoding suitable for storage.
func (h *Hasher) Hash(password string, salt []byte) (string, error) {
	if password == "" || len(salt) == 0 {
		return "", ErrInvalidInput
	}
	kdfSalt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(kdfSalt); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	derived := argon2.IDKey(
		h.kdfInput(password, salt),
		kdfSalt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.HashLength,
	)
	b64Salt := base64.RawStdEncoding.EncodeToString(kdfSalt)
	b64Hash := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		b64Salt,
		b64Hash,
	), nil
}

// Verify re-derives the hash of password under the parameters embedded in
// encodedHash and compares in constant time. Returns false on any decoding
// or parameter mismatch.
func (h *Hasher) Verify(password, encodedHash string, salt []byte) bool {
	if password == "" || len(salt) == 0 {
		return false
	}
	params, kdfSalt, stored, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}
	derived := argon2.IDKey(
		h.kdfInput(password, salt),
		kdfSalt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.HashLength,
	)
	return subtle.ConstantTimeCompare(derived, stored) == 1
}

func (h *Hasher) kdfInput(password string, salt []byte) []byte {
	return []byte(password + h.pepper + base64.RawStdEncoding.EncodeToString(salt))
}

func decodeHash(encodedHash string) (HashParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	if parts[1] != "argon2id" {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return HashParams{}, nil, nil, ErrIncompatibleVersion
	}
	var params HashParams
	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.Memory,
		&params.Iterations,
		&params.Parallelism,
	); err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	params.SaltLength = uint32(len(salt))
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return HashParams{}, nil, nil, ErrInvalidHash
	}
	params.HashLength = uint32(len(hash))
	return params, salt, hash, nil
}
