package api

import (
	"context"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	improvementScan   = 5
	graphVersionsScan = 1000
)

type MetricsComputer interface {
	ComputeMetrics(ctx context.Context, window int) (*models.AccuracyMetrics, error)
}

type LearningHandler struct {
	logger    *xlogger.Logger
	evaluator MetricsComputer
	log       domrepo.LearningLog
}

func NewLearningHandler(logger *xlogger.Logger, evaluator MetricsComputer, log domrepo.LearningLog) *LearningHandler {
	return &LearningHandler{logger: logger, evaluator: evaluator, log: log}
}

func (h *LearningHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/learning")
	g.GET("/metrics", h.Metrics)
	g.GET("/log", h.Log)
}

// Metrics adds the latest weight update among the newest log entries and the
// number of distinct learning cycles to the accuracy series.
func (h *LearningHandler) Metrics(c echo.Context) error {
	ctx := c.Request().Context()
	m, err := h.evaluator.ComputeMetrics(ctx, 0)
	if err != nil {
		h.logger.Error("compute metrics", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("metrics unavailable").WithError(err))
	}

	recent, err := h.log.Recent(ctx, improvementScan)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("learning log unavailable").WithError(err))
	}
	var last *models.LastImprovement
	for _, ev := range recent {
		if ev.Type == models.EventEdgeWeightUpdate {
			last = &models.LastImprovement{
				Cycle:    ev.Cycle,
				Change:   ev.Description,
				MAEDelta: util.Round(ev.MAEAfter-ev.MAEBefore, 6),
			}
			break
		}
	}

	all, err := h.log.Recent(ctx, graphVersionsScan)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("learning log unavailable").WithError(err))
	}
	cycles := make(map[int64]struct{}, len(all))
	for _, ev := range all {
		cycles[ev.Cycle] = struct{}{}
	}

	return xhttp.SuccessResponse(c, &models.LearningMetrics{
		AccuracyMetrics: *m,
		GraphVersions:   len(cycles),
		LastImprovement: last,
	})
}

func (h *LearningHandler) Log(c echo.Context) error {
	req := &models.LearningLogRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.log.Recent(c.Request().Context(), int64(req.Limit))
	if err != nil {
		h.logger.Error("learning log", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("learning log unavailable").WithError(err))
	}
	if events == nil {
		events = []models.LearningEvent{}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"events": events})
}
