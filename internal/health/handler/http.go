// Package handler serves liveness/readiness for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports backing-store connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz returns a handler that reports ok when every pinger responds.
// Nil pingers are skipped, so stateless services can pass none.
func Healthz(pingers ...Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.PingContext(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "down", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
