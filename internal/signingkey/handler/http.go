package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/signingkey/domain"
	userdomain "marketplace-iam/internal/user/domain"
)

// Rotator mints a new primary signing key.
type Rotator interface {
	Rotate(ctx context.Context) (*domain.SigningKey, error)
}

type rotateResponse struct {
	Kid       string `json:"kid"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RotateHandler triggers a signing-key rotation. The route must sit behind
// the trust-kernel middleware; on top of that only ADMIN may rotate.
func RotateHandler(svc Rotator) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := kernel.PrincipalFrom(c.Request().Context())
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "missing credential"})
		}
		if !p.HasRole(string(userdomain.RoleAdmin)) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN", "message": "admin role required"})
		}
		key, err := svc.Rotate(c.Request().Context())
		if err != nil {
			log.Printf("signing key rotation failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "rotation failed"})
		}
		resp := rotateResponse{Kid: key.Kid}
		if key.ExpiresAt != nil {
			resp.ExpiresAt = key.ExpiresAt.UTC().Format(time.RFC3339)
		}
		return c.JSON(http.StatusOK, resp)
	}
}
