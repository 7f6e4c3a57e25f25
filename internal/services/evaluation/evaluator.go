package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/pkg/util"
)

var (
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrMissingHorizon     = errors.New("no 1h forecast in prediction")
)

// PredictionReader is the part of the prediction repository the evaluator reads.
type PredictionReader interface {
	Get(ctx context.Context, id string) (*models.Prediction, error)
}

// Evaluator scores stored predictions against observed prices. It is the only
// writer of evaluation records.
type Evaluator struct {
	predictions PredictionReader
	evaluations domrepo.EvaluationRepository
	now         func() time.Time
}

type Option func(*Evaluator)

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(predictions PredictionReader, evaluations domrepo.EvaluationRepository, opts ...Option) *Evaluator {
	e := &Evaluator{
		predictions: predictions,
		evaluations: evaluations,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the 1h forecast of predictionID against actualPrice and
// persists the result.
func (e *Evaluator) Evaluate(ctx context.Context, predictionID string, actualPrice float64) (*models.Evaluation, error) {
	p, err := e.predictions.Get(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", predictionID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("evaluate %s: %w", predictionID, ErrPredictionNotFound)
	}
	forecast, ok := p.Forecast(models.HorizonOneHour)
	if !ok {
		return nil, fmt.Errorf("evaluate %s: %w", predictionID, ErrMissingHorizon)
	}

	absErr := math.Abs(forecast.PredictedPrice - actualPrice)
	var pctErr float64
	if actualPrice > 0 {
		pctErr = absErr / actualPrice
	}
	actualDirection := models.DirectionFlat
	switch {
	case actualPrice > p.CurrentPrice:
		actualDirection = models.DirectionUp
	case actualPrice < p.CurrentPrice:
		actualDirection = models.DirectionDown
	}

	factors := p.ContributingFactors
	if factors == nil {
		factors = []models.ContributingFactor{}
	}
	ev := &models.Evaluation{
		PredictionID:        predictionID,
		Cycle:               p.Cycle,
		Timestamp:           e.now(),
		Target:              p.Target,
		CurrentPrice:        p.CurrentPrice,
		PredictedPrice:      forecast.PredictedPrice,
		ActualPrice:         actualPrice,
		AbsoluteError:       util.Round(absErr, 6),
		PctError:            util.Round(pctErr, 6),
		PredictedDirection:  forecast.Direction,
		ActualDirection:     actualDirection,
		DirectionCorrect:    forecast.Direction == actualDirection,
		ContributingFactors: factors,
	}
	if err := e.evaluations.Save(ctx, ev); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", predictionID, err)
	}
	return ev, nil
}

// ListEvaluations returns up to limit evaluations, highest cycle first.
// limit <= 0 returns all of them.
func (e *Evaluator) ListEvaluations(ctx context.Context, limit int64) ([]models.Evaluation, error) {
	return e.evaluations.Recent(ctx, limit)
}

// ComputeMetrics builds the running MAE and directional accuracy series over
// all evaluations, or the newest window of them when window > 0.
func (e *Evaluator) ComputeMetrics(ctx context.Context, window int) (*models.AccuracyMetrics, error) {
	evals, err := e.evaluations.Recent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}
	return Accuracy(evals, window), nil
}

// Accuracy computes the running series for evals, in any order.
func Accuracy(evals []models.Evaluation, window int) *models.AccuracyMetrics {
	sorted := make([]models.Evaluation, len(evals))
	copy(sorted, evals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cycle > sorted[j].Cycle })
	if window > 0 && len(sorted) > window {
		sorted = sorted[:window]
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Cycle < sorted[j].Cycle })

	out := &models.AccuracyMetrics{
		TotalCycles:                len(sorted),
		MAEHistory:                 make([]float64, 0, len(sorted)),
		DirectionalAccuracyHistory: make([]float64, 0, len(sorted)),
	}
	var errSum float64
	var correct int
	for i, ev := range sorted {
		errSum += ev.AbsoluteError
		if ev.DirectionCorrect {
			correct++
		}
		n := float64(i + 1)
		out.MAEHistory = append(out.MAEHistory, util.Round(errSum/n, 6))
		out.DirectionalAccuracyHistory = append(out.DirectionalAccuracyHistory, util.Round(float64(correct)/n, 4))
	}
	if n := len(sorted); n > 0 {
		out.OverallMAE = out.MAEHistory[n-1]
		out.DirectionalAccuracy = out.DirectionalAccuracyHistory[n-1]
	}
	return out
}
