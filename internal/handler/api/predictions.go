package api

import (
	"context"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/usecase"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

const awaitingPredictionID = "awaiting_first_cycle"

type PredictionsHandler struct {
	logger      *xlogger.Logger
	predictions domrepo.PredictionRepository
	evaluations domrepo.EvaluationRepository
	target      string
	now         func() time.Time
}

func NewPredictionsHandler(
	logger *xlogger.Logger,
	predictions domrepo.PredictionRepository,
	evaluations domrepo.EvaluationRepository,
	target string,
) *PredictionsHandler {
	return &PredictionsHandler{
		logger:      logger,
		predictions: predictions,
		evaluations: evaluations,
		target:      target,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/predictions")
	g.GET("/latest", h.Latest)
	g.GET("/history", h.History)
}

func (h *PredictionsHandler) Latest(c echo.Context) error {
	p, err := h.latest(c.Request().Context())
	if err != nil {
		h.logger.Error("latest prediction", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("prediction store unavailable").WithError(err))
	}
	if p == nil {
		p = h.awaiting()
	}
	return xhttp.SuccessResponse(c, p)
}

func (h *PredictionsHandler) latest(ctx context.Context) (*models.Prediction, error) {
	ids, err := h.predictions.LatestIDs(ctx, 1)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return h.predictions.Get(ctx, ids[0])
}

func (h *PredictionsHandler) awaiting() *models.Prediction {
	return &models.Prediction{
		PredictionID: awaitingPredictionID,
		Timestamp:    h.now(),
		Target:       h.target,
		CurrentPrice: usecase.DefaultCurrentPrice,
		Predictions: []models.HorizonForecast{
			{Horizon: "1h", PredictedPrice: usecase.DefaultCurrentPrice, Direction: models.DirectionFlat, Confidence: 0},
		},
		ContributingFactors: []models.ContributingFactor{},
		CausalExplanation:   "Awaiting first prediction cycle. Trigger via POST /api/cycle/run.",
	}
}

// History joins the newest predictions with their evaluations, newest first.
func (h *PredictionsHandler) History(c echo.Context) error {
	req := &models.PredictionHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	preds, err := h.predictions.Recent(ctx, int64(req.Limit))
	if err != nil {
		h.logger.Error("prediction history", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("prediction store unavailable").WithError(err))
	}

	items := make([]models.PredictionHistoryItem, 0, len(preds))
	for _, p := range preds {
		item := models.PredictionHistoryItem{
			PredictionID: p.PredictionID,
			Cycle:        p.Cycle,
			Timestamp:    p.Timestamp,
		}
		if len(p.Predictions) > 0 {
			item.PredictedPrice1h = p.Predictions[0].PredictedPrice
		}
		ev, err := h.evaluations.Get(ctx, p.PredictionID)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.InternalError("evaluation store unavailable").WithError(err))
		}
		if ev != nil {
			actual, abs, correct := ev.ActualPrice, ev.AbsoluteError, ev.DirectionCorrect
			item.ActualPrice1h = &actual
			item.Error1h = &abs
			item.DirectionCorrect = &correct
		}
		items = append(items, item)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"predictions": items})
}
