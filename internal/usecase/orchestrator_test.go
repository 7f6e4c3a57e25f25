package usecase

import (
	"context"
	"testing"

	"ComputeOracle/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCycleFirstCycleHasNothingToEvaluate(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	ctx := context.Background()

	rec, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.Cycle)
	assert.Equal(t, models.ModeLive, rec.Mode)
	assert.Equal(t, 9, rec.SignalCount)
	assert.Equal(t, "pred_0001", rec.PredictionID)
	require.NotNil(t, rec.PredictedPrice1h)
	assert.InDelta(t, 1.07*0.95, *rec.PredictedPrice1h, 1e-9)
	assert.Nil(t, rec.Evaluation)
	assert.Nil(t, rec.Learning)

	stored, err := e.cycles.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.PredictionID, stored.PredictionID)

	pred, err := e.predictions.Get(ctx, "pred_0001")
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, 1.07, pred.CurrentPrice)
	assert.Equal(t, int64(1), pred.Cycle)

	ids, err := e.predictions.LatestIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"pred_0001"}, ids)
}

func TestRunCycleEvaluatesPreviousPrediction(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	ctx := context.Background()

	_, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)
	rec, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), rec.Cycle)
	require.NotNil(t, rec.Evaluation)
	assert.Equal(t, "pred_0001", rec.Evaluation.PreviousPredictionID)
	// the price stayed flat while a dip was forecast
	assert.False(t, rec.Evaluation.DirectionCorrect)
	require.NotNil(t, rec.Learning)
	assert.Equal(t, 6, rec.Learning.EventsCount)
	assert.Equal(t, 1, rec.Learning.GraphVersion)

	weights := e.edgeWeights(t)
	assert.InDelta(t, 0.4, weights["time_of_day->spot_price_p3_2xlarge"], 1e-9)
	assert.InDelta(t, 0.4, weights["electricity_demand_pjm->spot_price_g5_xlarge"], 1e-9)
	assert.Equal(t, 0.5, weights["day_of_week->spot_price_p3_2xlarge"])
}

func TestRunCycleWithExplicitGroundTruth(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	ctx := context.Background()

	first, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)

	actual := 0.9
	rec, err := e.orch.RunCycle(ctx, CycleOptions{ActualPrice: &actual, PreviousPredictionID: first.PredictionID})
	require.NoError(t, err)
	require.NotNil(t, rec.Evaluation)
	assert.True(t, rec.Evaluation.DirectionCorrect)
	assert.InDelta(t, 0.1165, rec.Evaluation.AbsoluteError, 1e-6)
	assert.InDelta(t, 0.6, e.edgeWeights(t)["time_of_day->spot_price_p3_2xlarge"], 1e-9)
}

func TestRunCycleBadPreviousPredictionDegrades(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})

	actual := 1.0
	rec, err := e.orch.RunCycle(context.Background(), CycleOptions{ActualPrice: &actual, PreviousPredictionID: "pred_gone"})
	require.NoError(t, err)
	assert.Nil(t, rec.Evaluation)
	assert.Nil(t, rec.Learning)
	assert.Equal(t, "pred_0001", rec.PredictionID)
}

func TestRunCycleSuppliedSignals(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})

	rec, err := e.orch.RunCycle(context.Background(), CycleOptions{Signals: []models.Signal{
		{Source: models.SourceAWSSpot, Name: "p3.2xlarge us-east-1a", InstanceType: "p3.2xlarge", AZ: "us-east-1a", Value: 0.8, Timestamp: baseTime},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SignalCount)

	pred, err := e.predictions.Get(context.Background(), rec.PredictionID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, pred.CurrentPrice)
}

func TestRunCycleOracleFailureAborts(t *testing.T) {
	e := newEnv(t, &scriptedOracle{failAt: 1})
	ctx := context.Background()

	_, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.Error(t, err)

	rec, err := e.cycles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// the failed cycle still consumed its number
	next, err := e.orch.RunCycle(ctx, CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Cycle)
}

func TestRunCycleIngestFailureAborts(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})
	e.orch.ingester = failingIngester{}

	_, err := e.orch.RunCycle(context.Background(), CycleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalogue offline")
	assert.Equal(t, 0, e.oracle.calls)
}

func TestRunCycleDefaultsPriceWithoutTargetSignal(t *testing.T) {
	e := newEnv(t, &scriptedOracle{})

	rec, err := e.orch.RunCycle(context.Background(), CycleOptions{Signals: []models.Signal{
		{Source: models.SourceEIAElectricity, Name: "PJM demand", Value: 142500, Timestamp: baseTime},
	}})
	require.NoError(t, err)
	pred, err := e.predictions.Get(context.Background(), rec.PredictionID)
	require.NoError(t, err)
	assert.Equal(t, DefaultCurrentPrice, pred.CurrentPrice)
}
