package audit

import (
	"context"

	"github.com/labstack/echo/v4"
)

type clientIPKey struct{}

// ClientIPMiddleware stores the resolved client IP in the request context so
// service-layer audit calls can record it without seeing the HTTP request.
func ClientIPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			ctx := context.WithValue(r.Context(), clientIPKey{}, c.RealIP())
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}

// ContextIP extracts the client IP stored by ClientIPMiddleware. It satisfies
// IPExtractor and returns "unknown" when no IP was recorded.
func ContextIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}
