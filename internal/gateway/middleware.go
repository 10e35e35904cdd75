package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/kernel"
	"marketplace-iam/internal/revocation"
)

// Forwarded identity headers. They are advisory: upstream services log them
// but must re-verify the token for authorization decisions.
const (
	HeaderUserID   = "X-User-Id"
	HeaderTenantID = "X-Tenant-Id"
	HeaderRoles    = "X-Roles"
)

// Stage names the validation step that rejected a request.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageVerify     Stage = "verify"
	StageRevocation Stage = "revocation"
)

// StageError carries the failing stage alongside the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Validator is the edge authentication filter: requests run through
// extract, verify and revocation stages, then get decorated with identity
// headers and forwarded. Public paths skip validation entirely.
type Validator struct {
	core   *kernel.AuthCore
	public *PathMatcher
}

// NewValidator returns a Validator admitting publicPaths without credentials.
func NewValidator(core *kernel.AuthCore, publicPaths []string) *Validator {
	return &Validator{core: core, public: NewPathMatcher(publicPaths)}
}

// Middleware returns the Echo middleware form of the validator.
func (v *Validator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if v.public.Matches(r.URL.Path) {
				return next(c)
			}
			token, serr := v.validate(c)
			if serr != nil {
				return v.reject(c, serr)
			}
			// The token forwards verbatim; upstream kernels re-verify it.
			r.Header.Set("Authorization", "Bearer "+token)
			return next(c)
		}
	}
}

// validate runs the staged checks and, on success, decorates the request
// with the advisory identity headers.
func (v *Validator) validate(c echo.Context) (string, *StageError) {
	r := c.Request()
	token, ok := kernel.AccessTokenFromRequest(r)
	if !ok {
		return "", &StageError{StageExtract, errors.New("no credential")}
	}
	claims, err := v.core.VerifyToken(r.Context(), token)
	if err != nil {
		return "", &StageError{StageVerify, err}
	}
	if err := v.core.CheckRevocation(r.Context(), claims); err != nil {
		return "", &StageError{StageRevocation, err}
	}
	r.Header.Set(HeaderUserID, claims.Subject)
	r.Header.Set(HeaderTenantID, claims.TenantID)
	r.Header.Set(HeaderRoles, strings.Join(claims.Roles, ","))
	return token, nil
}

func (v *Validator) reject(c echo.Context, serr *StageError) error {
	if errors.Is(serr, revocation.ErrUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "UPSTREAM_UNAVAILABLE", "message": "revocation store unreachable",
		})
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error": "UNAUTHORIZED", "message": serr.Error(),
	})
}
