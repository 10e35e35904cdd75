package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/auth/service"
	"marketplace-iam/internal/kernel"
)

// AuthHandler exposes the auth flows over HTTP. Token pairs are returned in
// the JSON body and mirrored into HTTP-only cookies for browser clients.
type AuthHandler struct {
	svc        *service.AuthService
	cookies    CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler returns an AuthHandler with the given dependencies.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		cookies:    cookies,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// MountRoutes registers the auth endpoints on e.
func (h *AuthHandler) MountRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/refresh", h.Refresh)
	e.POST("/auth/logout", h.Logout)
	e.POST("/auth/logout-all", h.LogoutAll)
}

type registerRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

type registerResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ID           string   `json:"id"`
	Roles        []string `json:"role"`
	TenantID     string   `json:"tenant_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ID           string   `json:"id"`
	Roles        []string `json:"role"`
	TenantID     string   `json:"tenant_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account and signs it in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{"VALIDATION_ERROR", "invalid request body"})
	}
	res, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		TenantID: req.TenantID,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.cookies.setAccess(c, res.AccessToken, h.accessTTL)
	h.cookies.setRefresh(c, res.RefreshToken, h.refreshTTL)
	return c.JSON(http.StatusOK, registerResponse{
		Token:        res.AccessToken,
		RefreshToken: res.RefreshToken,
		ID:           res.UserID,
		Roles:        roleStrings(res),
		TenantID:     res.TenantID,
	})
}

// Login authenticates by email or phone and password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{"VALIDATION_ERROR", "invalid request body"})
	}
	res, err := h.svc.Login(c.Request().Context(), service.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.cookies.setAccess(c, res.AccessToken, h.accessTTL)
	h.cookies.setRefresh(c, res.RefreshToken, h.refreshTTL)
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn(res.ExpiresAt),
		ID:           res.UserID,
		Roles:        roleStrings(res),
		TenantID:     res.TenantID,
	})
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// comes from the body or the refreshToken cookie; an access token presented
// via header or cookie is checked against the refresh token's user.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{"VALIDATION_ERROR", "invalid request body"})
	}
	refreshToken := kernel.RefreshTokenFromRequest(req.RefreshToken, c.Request())
	accessToken, _ := kernel.AccessTokenFromRequest(c.Request())
	res, err := h.svc.Refresh(c.Request().Context(), refreshToken, accessToken)
	if err != nil {
		return writeError(c, err)
	}
	h.cookies.setAccess(c, res.AccessToken, h.accessTTL)
	return c.JSON(http.StatusOK, refreshResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   expiresIn(res.ExpiresAt),
	})
}

// Logout revokes the presented refresh token and blacklists the calling
// access token, then clears the auth cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{"VALIDATION_ERROR", "invalid request body"})
	}
	refreshToken := kernel.RefreshTokenFromRequest(req.RefreshToken, c.Request())
	accessToken, _ := kernel.AccessTokenFromRequest(c.Request())
	if err := h.svc.Logout(c.Request().Context(), refreshToken, accessToken); err != nil {
		return writeError(c, err)
	}
	h.cookies.clear(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// LogoutAll revokes every session of the calling user and clears the cookies.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	accessToken, _ := kernel.AccessTokenFromRequest(c.Request())
	if err := h.svc.LogoutAll(c.Request().Context(), accessToken); err != nil {
		return writeError(c, err)
	}
	h.cookies.clear(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func expiresIn(expiresAt time.Time) int64 {
	d := time.Until(expiresAt)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

func roleStrings(res *service.AuthResult) []string {
	out := make([]string, len(res.Roles))
	for i, r := range res.Roles {
		out[i] = string(r)
	}
	return out
}
