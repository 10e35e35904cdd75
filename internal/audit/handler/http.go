package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/audit/domain"
	"marketplace-iam/internal/kernel"
	userdomain "marketplace-iam/internal/user/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Lister is the read side of the audit repository used by the HTTP handler.
type Lister interface {
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditEvent, error)
}

type eventResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	IP        string `json:"ip"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListHandler serves the tenant's audit trail to ADMIN and STAFF callers.
// Events are always scoped to the caller's own tenant.
func ListHandler(repo Lister) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := kernel.PrincipalFrom(c.Request().Context())
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "authentication required"})
		}
		if !p.HasRole(string(userdomain.RoleAdmin)) && !p.HasRole(string(userdomain.RoleStaff)) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN", "message": "insufficient role"})
		}
		limit := queryInt(c, "limit", defaultLimit)
		if limit > maxLimit {
			limit = maxLimit
		}
		offset := queryInt(c, "offset", 0)
		events, err := repo.ListByTenant(c.Request().Context(), p.TenantID, int32(limit), int32(offset))
		if err != nil {
			log.Printf("audit: list failed for tenant %s: %v", p.TenantID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "could not list audit events"})
		}
		out := make([]eventResponse, len(events))
		for i, e := range events {
			out[i] = eventResponse{
				ID:        e.ID,
				TenantID:  e.TenantID,
				UserID:    e.UserID,
				Action:    e.Action,
				Resource:  e.Resource,
				IP:        e.IP,
				Metadata:  e.Metadata,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"events": out})
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
