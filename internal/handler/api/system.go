package api

import (
	"context"

	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	Version = "0.1.0"
	project = "compute-oracle"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves liveness and build metadata.
type SystemHandler struct {
	logger  *xlogger.Logger
	redis   Pinger
	sources []string
}

func NewSystemHandler(logger *xlogger.Logger, redis Pinger, sources []string) *SystemHandler {
	return &SystemHandler{logger: logger, redis: redis, sources: sources}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/meta", h.Meta)
}

func (h *SystemHandler) Health(c echo.Context) error {
	redis := "connected"
	if err := h.redis.Ping(c.Request().Context()); err != nil {
		h.logger.Warn("redis ping failed", xlogger.Error(err))
		redis = "disconnected"
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok", "redis": redis})
}

func (h *SystemHandler) Meta(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"version":      Version,
		"project":      project,
		"data_sources": h.sources,
	})
}
