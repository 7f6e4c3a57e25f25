package api

import (
	"context"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

type GraphView interface {
	Get(ctx context.Context) (*models.CausalGraph, error)
	View(ctx context.Context) (*models.GraphView, error)
	FactorRankings(ctx context.Context) ([]models.FactorRanking, error)
}

type CausalHandler struct {
	logger   *xlogger.Logger
	graph    GraphView
	signals  domrepo.SignalStore
	reasoner service.Reasoner
}

func NewCausalHandler(logger *xlogger.Logger, graph GraphView, signals domrepo.SignalStore, reasoner service.Reasoner) *CausalHandler {
	return &CausalHandler{logger: logger, graph: graph, signals: signals, reasoner: reasoner}
}

func (h *CausalHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/causal")
	g.GET("/graph", h.Graph)
	g.GET("/factors", h.Factors)
	g.POST("/reason", h.Reason)
}

func (h *CausalHandler) Graph(c echo.Context) error {
	view, err := h.graph.View(c.Request().Context())
	if err != nil {
		h.logger.Error("load causal graph", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("causal graph unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *CausalHandler) Factors(c echo.Context) error {
	factors, err := h.graph.FactorRankings(c.Request().Context())
	if err != nil {
		h.logger.Error("rank factors", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("causal graph unavailable").WithError(err))
	}
	if factors == nil {
		factors = []models.FactorRanking{}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"factors": factors})
}

// Reason asks the reasoner oracle for graph-wide predictions over the latest
// signals and every edge.
func (h *CausalHandler) Reason(c echo.Context) error {
	ctx := c.Request().Context()
	signals, err := h.signals.Latest(ctx)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal store unavailable").WithError(err))
	}
	g, err := h.graph.Get(ctx)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("causal graph unavailable").WithError(err))
	}

	res, err := h.reasoner.Reason(ctx, signals, g.SortedEdges())
	if err != nil {
		h.logger.Error("reasoner failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("reasoner oracle failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
