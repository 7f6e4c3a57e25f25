package api

import (
	"context"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/usecase"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

type CycleRunner interface {
	RunCycle(ctx context.Context, opts usecase.CycleOptions) (*models.CycleRecord, error)
}

type CycleHandler struct {
	logger *xlogger.Logger
	orch   CycleRunner
}

func NewCycleHandler(logger *xlogger.Logger, orch CycleRunner) *CycleHandler {
	return &CycleHandler{logger: logger, orch: orch}
}

func (h *CycleHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/cycle/run", h.Run)
}

// Run executes one live cycle. The body is optional; an actual price is only
// accepted together with the prediction it grades.
func (h *CycleHandler) Run(c echo.Context) error {
	req := &models.CycleRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.orch.RunCycle(c.Request().Context(), usecase.CycleOptions{
		ActualPrice:          req.ActualPrice,
		PreviousPredictionID: req.PreviousPredictionID,
	})
	if err != nil {
		h.logger.Error("cycle failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("cycle failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, rec)
}
