package kernel

import (
	"net/http"
	"strings"
)

// Cookie names shared between the authority (which sets them) and the
// validators (which read them).
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// AccessTokenFromRequest extracts the access-token credential: a Bearer
// Authorization header wins, then the accessToken cookie. The prefix match is
// case-insensitive. Returns false when neither carries a credential.
func AccessTokenFromRequest(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		token := strings.TrimSpace(h[7:])
		if token != "" {
			return token, true
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// RefreshTokenFromRequest resolves the refresh token: an explicit body value
// wins, then the refreshToken cookie.
func RefreshTokenFromRequest(bodyValue string, r *http.Request) string {
	if bodyValue != "" {
		return bodyValue
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
