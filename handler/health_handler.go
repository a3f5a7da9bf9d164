package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is the database liveness probe used by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles service liveness and readiness requests.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// Health handles GET /v1/health.
func (h *HealthHandler) Health(c echo.Context) error {
	return respondOK(c, map[string]string{"status": "healthy"})
}

// Ready handles GET /v1/health/ready. Readiness requires the database.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "readiness check failed", "error", err)
		return respondError(c, http.StatusServiceUnavailable, "database unreachable")
	}

	return respondOK(c, map[string]string{"status": "ready"})
}
