package jwks

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/security"
)

// KeySource provides the currently active verification keys.
type KeySource interface {
	KeySet(ctx context.Context, at time.Time) (security.StaticKeySet, error)
}

// Handler serves the published key set at /.well-known/jwks.json.
func Handler(keys KeySource) echo.HandlerFunc {
	return func(c echo.Context) error {
		set, err := keys.KeySet(c.Request().Context(), time.Now().UTC())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "key set unavailable")
		}
		doc, err := FromKeySet(set)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "key set unavailable")
		}
		return c.JSON(http.StatusOK, doc)
	}
}
