// ABOUTME: This file provides HTTP request/response logging middleware
// ABOUTME: Emits structured access logs with timing and request context
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"rss-digest/utils/logger"
)

func LoggingMiddleware(contextLogger *logger.ContextLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			start := time.Now()

			ctx := logger.WithOperation(req.Context(), req.Method+" "+req.URL.Path)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			contextLogger.WithContext(ctx).Info("request completed",
				"method", req.Method,
				"path", req.URL.Path,
				"status_code", res.Status,
				"response_size", res.Size,
				"ip_address", c.RealIP(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return err
		}
	}
}
