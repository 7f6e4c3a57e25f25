package api

import (
	"context"
	"errors"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/services/ingestion"
	xhttp "ComputeOracle/pkg/http"
	xlogger "ComputeOracle/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalIngestor runs registered sources into the signal store.
type SignalIngestor interface {
	Sources() []service.SignalSource
	IngestByID(ctx context.Context, id string) (int, error)
	IngestAll(ctx context.Context) []models.IngestResult
}

// knownSources lists every source the dashboard knows about, registered or not.
var knownSources = []struct{ id, name string }{
	{models.SourceAWSSpot, "AWS Spot Pricing"},
	{models.SourceEIAElectricity, "EIA Electricity"},
	{models.SourceWeather, "OpenWeatherMap"},
	{models.SourceGPUPricing, "GPU Cloud Pricing"},
	{models.SourceNews, "News Events"},
}

type SignalsHandler struct {
	logger   *xlogger.Logger
	signals  domrepo.SignalStore
	ingestor SignalIngestor
	now      func() time.Time
}

func NewSignalsHandler(logger *xlogger.Logger, signals domrepo.SignalStore, ingestor SignalIngestor) *SignalsHandler {
	return &SignalsHandler{
		logger:   logger,
		signals:  signals,
		ingestor: ingestor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	g.GET("/latest", h.Latest)
	g.GET("/history", h.History)
	g.GET("/sources", h.Sources)
	g.POST("/ingest", h.Ingest)
}

// Latest serves the latest snapshot, or a fixed two-signal stub before the
// first ingestion.
func (h *SignalsHandler) Latest(c echo.Context) error {
	now := h.now()
	signals, err := h.signals.Latest(c.Request().Context())
	if err != nil {
		h.logger.Error("latest signals", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal store unavailable").WithError(err))
	}
	if len(signals) == 0 {
		signals = stubSignals(now)
	}
	return xhttp.SuccessResponse(c, &models.SignalSnapshot{Timestamp: now, Signals: signals})
}

func stubSignals(now time.Time) []models.Signal {
	spotChange, demandChange := -2.3, 1.8
	return []models.Signal{
		{Source: models.SourceAWSSpot, Name: "p3.2xlarge us-east-1a", Value: 0.918, Unit: "USD/hr", Timestamp: now, ChangePct: &spotChange},
		{Source: models.SourceEIAElectricity, Name: "PJM demand", Value: 142500.0, Unit: "MWh", Timestamp: now, ChangePct: &demandChange},
	}
}

func (h *SignalsHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	since := h.now().Add(-time.Duration(req.Hours) * time.Hour)
	points, err := h.signals.History(c.Request().Context(), req.Source, req.Name, since)
	if err != nil {
		h.logger.Error("signal history", xlogger.String("source", req.Source), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("signal store unavailable").WithError(err))
	}
	if points == nil {
		points = []models.DataPoint{}
	}
	return xhttp.SuccessResponse(c, &models.SignalHistory{Source: req.Source, Name: req.Name, DataPoints: points})
}

// Sources reports registered sources as active and the remaining known ones
// as inactive.
func (h *SignalsHandler) Sources(c echo.Context) error {
	now := h.now()
	registered := make(map[string]service.SignalSource)
	for _, s := range h.ingestor.Sources() {
		registered[s.ID()] = s
	}

	out := make([]models.SourceStatus, 0, len(knownSources)+len(registered))
	seen := make(map[string]bool)
	for _, k := range knownSources {
		st := models.SourceStatus{ID: k.id, Name: k.name, Status: "inactive"}
		if src, ok := registered[k.id]; ok {
			st.Name = src.Name()
			st.Status = "active"
			st.LastUpdate = &now
		}
		seen[k.id] = true
		out = append(out, st)
	}
	for _, src := range h.ingestor.Sources() {
		if seen[src.ID()] {
			continue
		}
		out = append(out, models.SourceStatus{ID: src.ID(), Name: src.Name(), Status: "active", LastUpdate: &now})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"sources": out})
}

// Ingest runs one source (?source=) or all of them and reports per source.
func (h *SignalsHandler) Ingest(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.QueryParam("source")
	if id == "" {
		results := h.ingestor.IngestAll(ctx)
		return xhttp.SuccessResponse(c, map[string]interface{}{"source": "all", "results": results})
	}

	n, err := h.ingestor.IngestByID(ctx, id)
	if errors.Is(err, ingestion.ErrUnknownSource) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown source %q", id))
	}
	res := models.IngestResult{Source: id, Count: n}
	if err != nil {
		h.logger.Warn("ingest failed", xlogger.String("source", id), xlogger.Error(err))
		res.Error = err.Error()
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"source": id, "results": []models.IngestResult{res}})
}
