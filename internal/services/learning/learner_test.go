package learning

import (
	"context"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/repository"
	"ComputeOracle/internal/services/causal"
	"ComputeOracle/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	graph   *causal.GraphStore
	log     *repository.RedisLearningLog
	learner *Learner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := store.NewRedisStoreWithClient(client, "oracle")

	clock := func() time.Time { return fixedNow }
	graph := causal.NewGraphStore(repository.NewRedisGraphRepository(st), causal.WithClock(clock))
	log := repository.NewRedisLearningLog(st, 0)
	learner := NewLearner(graph, log,
		WithLocker(repository.NewRedisGraphLock(st, time.Minute, time.Second)),
		WithClock(clock))
	return &fixture{graph: graph, log: log, learner: learner}
}

func evaluation(correct bool, actual string, factors ...models.ContributingFactor) *models.Evaluation {
	return &models.Evaluation{
		PredictionID:        "pred_test",
		AbsoluteError:       0.0512345678,
		ActualDirection:     actual,
		DirectionCorrect:    correct,
		ContributingFactors: factors,
	}
}

func TestLearnStrengthensOnCorrectPrediction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.learner.Learn(ctx, evaluation(true, models.DirectionDown,
		models.ContributingFactor{Factor: "time_of_day", Direction: models.FactorBullish}), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, res.GraphVersion)
	assert.True(t, res.DirectionCorrect)
	require.Len(t, res.Events, 3)
	for _, ev := range res.Events {
		assert.Equal(t, models.EventEdgeWeightUpdate, ev.Type)
		assert.Equal(t, 0.5, ev.OldWeight)
		assert.Equal(t, 0.6, ev.NewWeight)
		assert.Equal(t, 0.051235, ev.MAEBefore)
		assert.Equal(t, ev.MAEBefore, ev.MAEAfter)
	}
	assert.Equal(t, "Strengthened time_of_day → spot_price_g4dn_xlarge: 0.500 → 0.600 (prediction correct, factor was bullish)",
		res.Events[0].Description)

	g, err := f.graph.Get(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, g.Edges["time_of_day->spot_price_p3_2xlarge"].Weight, 1e-12)
	assert.Equal(t, 1, g.Edges["time_of_day->spot_price_p3_2xlarge"].UpdateCount)
	assert.Equal(t, 0.5, g.Edges["day_of_week->spot_price_p3_2xlarge"].Weight)

	logged, err := f.log.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 3)
}

func TestLearnSmallStrengthenWhenFactorRight(t *testing.T) {
	f := newFixture(t)

	res, err := f.learner.Learn(context.Background(), evaluation(false, models.DirectionDown,
		models.ContributingFactor{Factor: "electricity_demand_pjm", Direction: models.FactorBearish}), 1)
	require.NoError(t, err)

	require.Len(t, res.Events, 3)
	assert.Equal(t, 0.53, res.Events[0].NewWeight)
	assert.Contains(t, res.Events[0].Description, "Slightly strengthened electricity_demand_pjm")
}

func TestLearnMissingDirectionIsNeutral(t *testing.T) {
	f := newFixture(t)

	res, err := f.learner.Learn(context.Background(), evaluation(false, models.DirectionFlat,
		models.ContributingFactor{Factor: "day_of_week"}), 1)
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)
	assert.Equal(t, 0.53, res.Events[0].NewWeight)
}

func TestLearnWeakensAndPrunes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.graph.UpdateEdge(ctx, "temperature_us_west", "spot_price_g5_xlarge", 0.06)
	require.NoError(t, err)

	res, err := f.learner.Learn(ctx, evaluation(false, models.DirectionUp,
		models.ContributingFactor{Factor: "temperature_us_west", Direction: models.FactorBearish}), 1)
	require.NoError(t, err)

	var pruned, updated int
	for _, ev := range res.Events {
		switch ev.Type {
		case models.EventEdgePruned:
			pruned++
			assert.Equal(t, "spot_price_g5_xlarge", ev.Target)
			assert.Equal(t, "Pruned temperature_us_west → spot_price_g5_xlarge (weight fell to 0.048 after incorrect predictions)", ev.Description)
		case models.EventEdgeWeightUpdate:
			updated++
			assert.Equal(t, 0.4, ev.NewWeight)
			assert.Contains(t, ev.Description, "Weakened temperature_us_west")
		}
	}
	// six outgoing edges: three targets, three demand nodes
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 5, updated)

	g, err := f.graph.Get(ctx)
	require.NoError(t, err)
	_, exists := g.Edges["temperature_us_west->spot_price_g5_xlarge"]
	assert.False(t, exists)
	for _, e := range g.Edges {
		assert.GreaterOrEqual(t, e.Weight, 0.0)
		assert.LessOrEqual(t, e.Weight, 1.0)
		assert.GreaterOrEqual(t, e.Confidence, 0.0)
		assert.LessOrEqual(t, e.Confidence, 1.0)
	}
}

func TestLearnWithoutFactorsStillBumpsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		res, err := f.learner.Learn(ctx, evaluation(true, models.DirectionUp), int64(want))
		require.NoError(t, err)
		assert.Empty(t, res.Events)
		assert.Equal(t, want, res.GraphVersion)
	}
}

func TestLearnDeduplicatesFactors(t *testing.T) {
	f := newFixture(t)

	res, err := f.learner.Learn(context.Background(), evaluation(true, models.DirectionUp,
		models.ContributingFactor{Factor: "time_of_day", Direction: models.FactorBullish},
		models.ContributingFactor{Factor: "time_of_day", Direction: models.FactorBearish},
	), 1)
	require.NoError(t, err)
	assert.Len(t, res.Events, 3)
	assert.Equal(t, 1, res.GraphVersion)
}

func TestLearnUnknownFactorTouchesNothing(t *testing.T) {
	f := newFixture(t)

	res, err := f.learner.Learn(context.Background(), evaluation(true, models.DirectionUp,
		models.ContributingFactor{Factor: "moon_phase", Direction: models.FactorBullish}), 1)
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, 1, res.GraphVersion)
}

func TestLearnDeterministic(t *testing.T) {
	run := func() ([]models.LearningEvent, map[string]float64) {
		f := newFixture(t)
		ctx := context.Background()
		var all []models.LearningEvent
		steps := []*models.Evaluation{
			evaluation(true, models.DirectionUp, models.ContributingFactor{Factor: "time_of_day", Direction: models.FactorBullish}),
			evaluation(false, models.DirectionDown, models.ContributingFactor{Factor: "day_of_week", Direction: models.FactorBullish},
				models.ContributingFactor{Factor: "electricity_demand_ciso", Direction: models.FactorBearish}),
			evaluation(false, models.DirectionFlat, models.ContributingFactor{Factor: "temperature_us_east", Direction: models.FactorBullish}),
		}
		for i, ev := range steps {
			res, err := f.learner.Learn(ctx, ev, int64(i+1))
			require.NoError(t, err)
			all = append(all, res.Events...)
		}
		g, err := f.graph.Get(ctx)
		require.NoError(t, err)
		weights := map[string]float64{}
		for k, e := range g.Edges {
			weights[k] = e.Weight
		}
		return all, weights
	}

	eventsA, weightsA := run()
	eventsB, weightsB := run()
	assert.Equal(t, eventsA, eventsB)
	assert.Equal(t, weightsA, weightsB)
}
