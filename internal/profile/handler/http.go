package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/profile/domain"
)

// Repository is the persistence surface the handler needs.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, p *domain.Profile) error
}

// ProfileHandler serves the profile resource. Every route assumes the trust
// kernel middleware already placed a Principal in the request context.
type ProfileHandler struct {
	repo Repository
}

func NewProfileHandler(repo Repository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// MountRoutes registers the profile routes on g.
func (h *ProfileHandler) MountRoutes(g *echo.Group) {
	g.GET("/profile/me", h.Me)
	g.PUT("/profile/me", h.Put)
	g.GET("/profile/:id", h.Get)
}

type profileResponse struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type putProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c echo.Context) error {
	p, ok := kernel.PrincipalFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	return h.serve(c, p, p.UserID)
}

// Get returns the profile for the path id, subject to the authorization
// decision: owners and tenant ADMIN/STAFF may read, cross-tenant lookups
// read as missing.
func (h *ProfileHandler) Get(c echo.Context) error {
	p, ok := kernel.PrincipalFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	return h.serve(c, p, c.Param("id"))
}

func (h *ProfileHandler) serve(c echo.Context, p kernel.Principal, userID string) error {
	profile, err := h.repo.GetByUserID(c.Request().Context(), userID)
	if err != nil {
		return internal(c, "profile lookup", err)
	}
	if profile == nil {
		return notFound(c)
	}
	switch kernel.Authorize(p, profile.UserID, profile.TenantID) {
	case kernel.DecisionAllow:
		return c.JSON(http.StatusOK, toResponse(profile))
	case kernel.DecisionForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "FORBIDDEN", "message": "not allowed to read this profile"})
	default:
		return notFound(c)
	}
}

// Put creates or updates the caller's own profile.
func (h *ProfileHandler) Put(c echo.Context) error {
	p, ok := kernel.PrincipalFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	var req putProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "VALIDATION_ERROR", "message": "invalid request body"})
	}
	now := time.Now().UTC()
	profile := &domain.Profile{
		UserID:      p.UserID,
		TenantID:    p.TenantID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := profile.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "VALIDATION_ERROR", "message": err.Error()})
	}
	if err := h.repo.Upsert(c.Request().Context(), profile); err != nil {
		return internal(c, "profile upsert", err)
	}
	return c.JSON(http.StatusOK, toResponse(profile))
}

func toResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		TenantID:    p.TenantID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "authentication required"})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "NOT_FOUND", "message": "profile not found"})
}

func internal(c echo.Context, op string, err error) error {
	log.Printf("profile: %s: %v", op, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "unexpected error"})
}
