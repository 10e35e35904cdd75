package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
)

// CookieConfig controls the attributes of the auth cookies set alongside JSON
// token responses.
type CookieConfig struct {
	Domain       string
	Secure       bool
	SameSiteNone bool
}

func (cfg CookieConfig) sameSite() http.SameSite {
	// SameSite=None requires Secure; browsers drop the cookie otherwise.
	if cfg.SameSiteNone && cfg.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (cfg CookieConfig) newCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.sameSite(),
	}
}

func (cfg CookieConfig) setAccess(c echo.Context, token string, ttl time.Duration) {
	c.SetCookie(cfg.newCookie(kernel.AccessTokenCookie, token, ttl))
}

func (cfg CookieConfig) setRefresh(c echo.Context, token string, ttl time.Duration) {
	c.SetCookie(cfg.newCookie(kernel.RefreshTokenCookie, token, ttl))
}

// clear resets both auth cookies so the browser drops them immediately.
// MaxAge -1 serializes as Max-Age=0.
func (cfg CookieConfig) clear(c echo.Context) {
	for _, name := range []string{kernel.AccessTokenCookie, kernel.RefreshTokenCookie} {
		cookie := cfg.newCookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		c.SetCookie(cookie)
	}
}
