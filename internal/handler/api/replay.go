package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/usecase"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/util"

	"github.com/labstack/echo/v4"
)

type ReplayRunner interface {
	Start(ctx context.Context, start, end time.Time) (*models.ReplayStartResult, error)
	Status(ctx context.Context, replayID string) (*models.ReplayStatus, error)
}

type ReplayHandler struct {
	logger *xlogger.Logger
	engine ReplayRunner
}

func NewReplayHandler(logger *xlogger.Logger, engine ReplayRunner) *ReplayHandler {
	return &ReplayHandler{logger: logger, engine: engine}
}

func (h *ReplayHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/replay")
	g.POST("/start", h.Start)
	g.GET("/status/:id", h.Status)
}

// Start queues a replay and answers 202 with the estimated cycle count.
func (h *ReplayHandler) Start(c echo.Context) error {
	req := &models.ReplayStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, ok := util.ParseTime(req.StartDate)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_INVALID_DATE", "start_date", "start_date is not a valid timestamp", http.StatusBadRequest).
			WithParam("value", req.StartDate))
	}
	end, ok := util.ParseTime(req.EndDate)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_INVALID_DATE", "end_date", "end_date is not a valid timestamp", http.StatusBadRequest).
			WithParam("value", req.EndDate))
	}

	res, err := h.engine.Start(c.Request().Context(), start, end)
	if errors.Is(err, usecase.ErrInvalidRange) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if err != nil {
		h.logger.Error("start replay", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not queue replay").WithError(err))
	}
	return xhttp.AcceptedResponse(c, res)
}

func (h *ReplayHandler) Status(c echo.Context) error {
	req := &models.ReplayStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.engine.Status(c.Request().Context(), req.ReplayID)
	if err != nil {
		h.logger.Error("replay status", xlogger.String("replay_id", req.ReplayID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("replay store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, st)
}
