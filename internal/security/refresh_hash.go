package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashRefreshToken returns a deterministic one-way hash of the refresh token
// string with the pepper appended, base64-encoded. Determinism allows the
// token to be looked up by hash without storing the raw token; the pepper
// keeps an exfiltrated table useless for forging lookups.
func (h *Hasher) HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token + h.pepper))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// RefreshTokenHashEqual performs constant-time comparison of the provided
// token's hash with the stored hash. Returns true only if they match.
func (h *Hasher) RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := h.HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
