package kernel

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/revocation"
)

// Middleware returns an Echo middleware that authenticates every request
// with core and stores the resulting principal in the request context.
// The principal comes from the verified token claims; forwarded X-* headers
// are never consulted.
func Middleware(core *AuthCore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := AccessTokenFromRequest(c.Request())
			if !ok {
				return unauthorized(c, "missing credential")
			}
			claims, err := core.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, revocation.ErrUnavailable) {
					return c.JSON(http.StatusServiceUnavailable, echo.Map{
						"error": "UPSTREAM_UNAVAILABLE", "message": "revocation store unreachable",
					})
				}
				return unauthorized(c, "invalid or revoked token")
			}
			ctx := WithPrincipal(c.Request().Context(), PrincipalFromClaims(claims))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": message})
}
