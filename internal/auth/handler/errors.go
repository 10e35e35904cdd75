package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"marketplace-iam/internal/auth/service"
	"marketplace-iam/internal/revocation"
	"marketplace-iam/internal/security"
	userrepo "marketplace-iam/internal/user/repository"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps domain sentinels to HTTP responses. Unrecognized errors are
// logged with a correlation id and surfaced as an opaque 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return c.JSON(http.StatusUnauthorized, errorBody{"BAD_CREDENTIALS", "invalid credentials"})
	case errors.Is(err, userrepo.ErrEmailTaken):
		return c.JSON(http.StatusConflict, errorBody{"EMAIL_TAKEN", "email already registered"})
	case errors.Is(err, userrepo.ErrPhoneTaken):
		return c.JSON(http.StatusConflict, errorBody{"PHONE_TAKEN", "phone already registered"})
	case errors.Is(err, service.ErrInvalidTenant), errors.Is(err, service.ErrTenantRequired):
		return c.JSON(http.StatusBadRequest, errorBody{"INVALID_TENANT", err.Error()})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorBody{"VALIDATION_ERROR", err.Error()})
	case errors.Is(err, security.ErrMalformed),
		errors.Is(err, security.ErrExpired),
		errors.Is(err, security.ErrUnknownKid),
		errors.Is(err, security.ErrBadSignature):
		return c.JSON(http.StatusUnauthorized, errorBody{"UNAUTHORIZED", "invalid or expired token"})
	case errors.Is(err, revocation.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorBody{"UPSTREAM_UNAVAILABLE", "revocation store unavailable"})
	default:
		id := uuid.New().String()
		log.Printf("auth handler: internal error [%s]: %v", id, err)
		return c.JSON(http.StatusInternalServerError, errorBody{"INTERNAL", "internal error, correlation id " + id})
	}
}
