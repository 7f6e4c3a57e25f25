package usecase

import (
	"context"
	"fmt"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/pkg/logger"
)

// DefaultCurrentPrice is used when no signal prices the target.
const DefaultCurrentPrice = 1.07

// Target is the instrument every cycle forecasts.
type Target struct {
	Instance string
	Zone     string
}

func (t Target) String() string { return t.Instance + " " + t.Zone }

type GraphReader interface {
	Get(ctx context.Context) (*models.CausalGraph, error)
}

type Ingester interface {
	IngestByID(ctx context.Context, id string) (int, error)
}

type PredictionEvaluator interface {
	Evaluate(ctx context.Context, predictionID string, actualPrice float64) (*models.Evaluation, error)
	ComputeMetrics(ctx context.Context, window int) (*models.AccuracyMetrics, error)
}

type GraphLearner interface {
	Learn(ctx context.Context, eval *models.Evaluation, cycle int64) (*models.LearningResult, error)
}

// CycleOptions carries the optional inputs of a live cycle.
type CycleOptions struct {
	Signals              []models.Signal
	ActualPrice          *float64
	PreviousPredictionID string
}

// Orchestrator runs prediction cycles: ingest, predict, evaluate the previous
// prediction, learn, persist.
type Orchestrator struct {
	counter     domrepo.CycleCounter
	ingester    Ingester
	primary     string
	signals     domrepo.SignalStore
	graph       GraphReader
	oracle      service.PredictionOracle
	predictions domrepo.PredictionRepository
	evaluator   PredictionEvaluator
	learner     GraphLearner
	cycles      domrepo.CycleRepository
	publisher   domrepo.EventPublisher
	metrics     domrepo.Metrics
	target      Target
	lgr         *logger.Logger
	now         func() time.Time
}

func NewOrchestrator(
	counter domrepo.CycleCounter,
	ingester Ingester,
	primarySource string,
	signals domrepo.SignalStore,
	graph GraphReader,
	oracle service.PredictionOracle,
	predictions domrepo.PredictionRepository,
	evaluator PredictionEvaluator,
	learner GraphLearner,
	cycles domrepo.CycleRepository,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	target Target,
	lgr *logger.Logger,
) *Orchestrator {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &Orchestrator{
		counter:     counter,
		ingester:    ingester,
		primary:     primarySource,
		signals:     signals,
		graph:       graph,
		oracle:      oracle,
		predictions: predictions,
		evaluator:   evaluator,
		learner:     learner,
		cycles:      cycles,
		publisher:   publisher,
		metrics:     metrics,
		target:      target,
		lgr:         lgr.With(logger.String("component", "orchestrator")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (o *Orchestrator) Target() Target { return o.target }

// RunCycle runs one live cycle. Ingestion, oracle and persistence failures
// abort it; evaluation and learning failures only drop their summaries.
func (o *Orchestrator) RunCycle(ctx context.Context, opts CycleOptions) (*models.CycleRecord, error) {
	cycle, err := o.counter.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("cycle: advance counter: %w", err)
	}

	signals := opts.Signals
	if signals == nil {
		if _, err := o.ingester.IngestByID(ctx, o.primary); err != nil {
			o.recordError("ingest")
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		if signals, err = o.signals.Latest(ctx); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
	}

	rec, _, err := o.step(ctx, stepInput{
		cycle:          cycle,
		mode:           models.ModeLive,
		signals:        signals,
		previousID:     opts.PreviousPredictionID,
		actualPrice:    opts.ActualPrice,
		lookupPrevious: opts.PreviousPredictionID == "",
	})
	return rec, err
}

type stepInput struct {
	cycle       int64
	mode        string
	signals     []models.Signal
	previousID  string
	actualPrice *float64
	// lookupPrevious links to the newest indexed prediction when previousID is empty.
	lookupPrevious bool
}

// step predicts for one signal batch, evaluates and learns from the previous
// prediction when ground truth exists, and persists the cycle record. Live
// cycles and replay steps both go through here.
func (o *Orchestrator) step(ctx context.Context, in stepInput) (*models.CycleRecord, *models.Prediction, error) {
	start := time.Now()

	g, err := o.graph.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cycle %d: load graph: %w", in.cycle, err)
	}

	current, ok := models.FindPrice(in.signals, o.target.Instance, o.target.Zone)
	if !ok {
		current = DefaultCurrentPrice
	}

	pred, err := o.oracle.Predict(ctx, service.PredictionRequest{
		Signals:        in.signals,
		Edges:          g.SortedEdges(),
		TargetInstance: o.target.Instance,
		TargetZone:     o.target.Zone,
		CurrentPrice:   current,
		Cycle:          in.cycle,
	})
	if err != nil {
		o.recordError("oracle")
		return nil, nil, fmt.Errorf("cycle %d: %w", in.cycle, err)
	}
	pred.Cycle = in.cycle

	if err := o.predictions.Save(ctx, pred); err != nil {
		return nil, nil, fmt.Errorf("cycle %d: %w", in.cycle, err)
	}

	previousID := in.previousID
	if previousID == "" && in.lookupPrevious {
		ids, err := o.predictions.LatestIDs(ctx, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("cycle %d: %w", in.cycle, err)
		}
		if len(ids) > 0 {
			previousID = ids[0]
		}
	}
	if err := o.predictions.Index(ctx, pred); err != nil {
		return nil, nil, fmt.Errorf("cycle %d: %w", in.cycle, err)
	}

	actual := in.actualPrice
	if actual == nil {
		if price, ok := models.FindPrice(in.signals, o.target.Instance, o.target.Zone); ok {
			actual = &price
		}
	}

	rec := &models.CycleRecord{
		Cycle:            in.cycle,
		Mode:             in.mode,
		Timestamp:        o.now(),
		SignalCount:      len(in.signals),
		PredictionID:     pred.PredictionID,
		PredictedPrice1h: pred.FirstPrice(),
	}
	if previousID != "" && actual != nil {
		o.evaluateAndLearn(ctx, rec, previousID, *actual)
	}

	if err := o.cycles.Save(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("cycle %d: %w", in.cycle, err)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishCycle(ctx, rec); err != nil {
			o.lgr.Warn("publish cycle failed", logger.Int64("cycle", in.cycle), logger.Error(err))
		}
	}
	if o.metrics != nil {
		o.metrics.RecordCycle(in.mode, time.Since(start).Seconds())
	}

	o.lgr.Info("cycle complete",
		logger.Int64("cycle", in.cycle),
		logger.String("mode", in.mode),
		logger.String("prediction_id", pred.PredictionID),
		logger.Int("signals", len(in.signals)),
		logger.Bool("evaluated", rec.Evaluation != nil))
	return rec, pred, nil
}

func (o *Orchestrator) evaluateAndLearn(ctx context.Context, rec *models.CycleRecord, previousID string, actual float64) {
	ev, err := o.evaluator.Evaluate(ctx, previousID, actual)
	if err != nil {
		o.recordError("evaluate")
		o.lgr.Warn("evaluation skipped",
			logger.Int64("cycle", rec.Cycle),
			logger.String("previous_prediction_id", previousID),
			logger.Error(err))
		return
	}
	rec.Evaluation = &models.EvaluationSummary{
		PreviousPredictionID: previousID,
		AbsoluteError:        ev.AbsoluteError,
		DirectionCorrect:     ev.DirectionCorrect,
	}

	res, err := o.learner.Learn(ctx, ev, rec.Cycle)
	if err != nil {
		o.recordError("learn")
		o.lgr.Warn("learning skipped", logger.Int64("cycle", rec.Cycle), logger.Error(err))
		return
	}
	rec.Learning = &models.LearningSummary{
		EventsCount:      len(res.Events),
		GraphVersion:     res.GraphVersion,
		DirectionCorrect: res.DirectionCorrect,
	}

	if o.metrics != nil {
		if m, err := o.evaluator.ComputeMetrics(ctx, 0); err == nil {
			o.metrics.RecordAccuracy(m.OverallMAE, m.DirectionalAccuracy)
		}
	}
}

func (o *Orchestrator) recordError(kind string) {
	if o.metrics != nil {
		o.metrics.RecordError(kind)
	}
}
