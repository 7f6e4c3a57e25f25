package api

import (
	"context"

	"ComputeOracle/internal/domain/models"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

type WindowFinder interface {
	OptimalWindows(ctx context.Context, hoursAhead int) (*models.SchedulerResult, error)
}

type SchedulerHandler struct {
	logger    *xlogger.Logger
	scheduler WindowFinder
}

func NewSchedulerHandler(logger *xlogger.Logger, scheduler WindowFinder) *SchedulerHandler {
	return &SchedulerHandler{logger: logger, scheduler: scheduler}
}

func (h *SchedulerHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/scheduler/windows", h.Windows)
}

func (h *SchedulerHandler) Windows(c echo.Context) error {
	req := &models.SchedulerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.scheduler.OptimalWindows(c.Request().Context(), req.Hours)
	if err != nil {
		h.logger.Error("scheduler windows", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("scheduler unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
