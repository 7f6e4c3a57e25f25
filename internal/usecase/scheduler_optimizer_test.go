package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(e *env) *SchedulerOptimizer {
	return NewSchedulerOptimizer(e.predictions, e.evaluations, e.savings)
}

func savePrediction(t *testing.T, e *env, id string, at time.Time, current float64, forecasts ...models.HorizonForecast) {
	t.Helper()
	p := &models.Prediction{
		PredictionID: id,
		Timestamp:    at,
		Target:       "p3.2xlarge us-east-1a",
		CurrentPrice: current,
		Predictions:  forecasts,
	}
	ctx := context.Background()
	require.NoError(t, e.predictions.Save(ctx, p))
	require.NoError(t, e.predictions.Index(ctx, p))
}

func TestSchedulerWithoutPredictions(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})

	res, err := newScheduler(e).OptimalWindows(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrentPrice, res.CurrentPrice)
	assert.NotNil(t, res.Windows)
	assert.Empty(t, res.Windows)
	assert.Equal(t, "No predictions available yet. Run prediction cycles first.", res.Recommendation)
	assert.Equal(t, models.CumulativeSavings{}, res.CumulativeSavings)
}

func TestSchedulerFindsConfidentDips(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	savePrediction(t, e, "pred_a", baseTime, 1.0,
		models.HorizonForecast{Horizon: "1h", PredictedPrice: 0.9, Direction: models.DirectionDown, Confidence: 0.7},
		models.HorizonForecast{Horizon: "6h", PredictedPrice: 0.8, Direction: models.DirectionDown, Confidence: 0.5},
		models.HorizonForecast{Horizon: "24h", PredictedPrice: 1.1, Direction: models.DirectionUp, Confidence: 0.9},
	)

	res, err := newScheduler(e).OptimalWindows(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.CurrentPrice)
	require.Len(t, res.Windows, 1)
	w := res.Windows[0]
	assert.Equal(t, 10.0, w.SavingsPct)
	assert.Equal(t, baseTime, w.Start)
	assert.Equal(t, baseTime.Add(time.Hour), w.End)
	assert.Equal(t, "Best window: $0.900/hr (10.0% savings, 70% confidence)", res.Recommendation)
}

func TestSchedulerNoDipUsesDefaultRecommendation(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	savePrediction(t, e, "pred_a", baseTime, 1.0,
		models.HorizonForecast{Horizon: "1h", PredictedPrice: 1.01, Direction: models.DirectionDown, Confidence: 0.9})

	res, err := newScheduler(e).OptimalWindows(context.Background(), 24)
	require.NoError(t, err)
	assert.Empty(t, res.Windows)
	assert.Equal(t, "Run workloads during predicted price dips for optimal savings.", res.Recommendation)
}

func TestSchedulerScansNewestTenAndKeepsTopFive(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	for i := 0; i < 12; i++ {
		price := 0.99 - float64(i)*0.01
		if i < 2 {
			price = 0.5
		}
		savePrediction(t, e, fmt.Sprintf("pred_%02d", i), baseTime.Add(time.Duration(i)*time.Hour), 1.0,
			models.HorizonForecast{Horizon: "1h", PredictedPrice: price, Direction: models.DirectionDown, Confidence: 0.8})
	}

	res, err := newScheduler(e).OptimalWindows(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, res.Windows, 5)
	got := make([]float64, 0, len(res.Windows))
	for _, w := range res.Windows {
		got = append(got, w.SavingsPct)
	}
	assert.Equal(t, []float64{12.0, 11.0, 10.0, 9.0, 8.0}, got)
}

func TestSchedulerCumulativeSavings(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	ctx := context.Background()
	savePrediction(t, e, "pred_a", baseTime, 1.0,
		models.HorizonForecast{Horizon: "1h", PredictedPrice: 0.9, Direction: models.DirectionDown, Confidence: 0.7})

	evals := []models.Evaluation{
		{PredictionID: "pred_1", Cycle: 1, CurrentPrice: 1.0, PredictedPrice: 0.9, ActualPrice: 0.92, DirectionCorrect: true},
		{PredictionID: "pred_2", Cycle: 2, CurrentPrice: 1.0, PredictedPrice: 1.1, ActualPrice: 1.05, DirectionCorrect: true},
		{PredictionID: "pred_3", Cycle: 3, CurrentPrice: 1.0, PredictedPrice: 0.9, ActualPrice: 1.2, DirectionCorrect: false},
	}
	for i := range evals {
		require.NoError(t, e.evaluations.Save(ctx, &evals[i]))
	}

	res, err := newScheduler(e).OptimalWindows(ctx, 24)
	require.NoError(t, err)
	want := models.CumulativeSavings{TotalUSD: 0.08, VsNaivePct: 4.0, WorkloadsOptimized: 1}
	assert.Equal(t, want, res.CumulativeSavings)

	stored, err := e.savings.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, want, *stored)
}
