package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/repository"
	"ComputeOracle/internal/services/causal"
	"ComputeOracle/internal/services/evaluation"
	"ComputeOracle/internal/services/ingestion"
	"ComputeOracle/internal/services/learning"
	"ComputeOracle/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var baseTime = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// scriptedOracle forecasts a 5% dip on every call and can be told to fail
// on a given call number.
type scriptedOracle struct {
	mu     sync.Mutex
	calls  int
	failAt int
}

func (o *scriptedOracle) Predict(_ context.Context, req service.PredictionRequest) (*models.Prediction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.failAt > 0 && o.calls == o.failAt {
		return nil, errors.New("oracle exploded")
	}
	return &models.Prediction{
		PredictionID: fmt.Sprintf("pred_%04d", o.calls),
		Cycle:        req.Cycle,
		Timestamp:    baseTime.Add(time.Duration(o.calls) * time.Minute),
		Target:       req.TargetInstance + " " + req.TargetZone,
		CurrentPrice: req.CurrentPrice,
		Predictions: []models.HorizonForecast{
			{Horizon: "1h", PredictedPrice: req.CurrentPrice * 0.95, Direction: models.DirectionDown, Confidence: 0.7},
		},
		ContributingFactors: []models.ContributingFactor{
			{Factor: "time_of_day", Contribution: 0.4, Direction: models.FactorBearish},
			{Factor: "electricity_demand_pjm", Contribution: 0.2, Direction: models.FactorBullish},
		},
	}, nil
}

type failingIngester struct{}

func (failingIngester) IngestByID(context.Context, string) (int, error) {
	return 0, errors.New("catalogue offline")
}

type env struct {
	client      *redis.Client
	store       *store.RedisStore
	oracle      *scriptedOracle
	spot        *ingestion.SpotPricingSource
	graph       *causal.GraphStore
	predictions *repository.RedisPredictionRepository
	evaluations *repository.RedisEvaluationRepository
	cycles      *repository.RedisCycleRepository
	statuses    *repository.RedisReplayStatusRepository
	savings     *repository.RedisSavingsRepository
	learningLog *repository.RedisLearningLog
	evaluator   *evaluation.Evaluator
	orch        *Orchestrator
}

func newEnv(t *testing.T, oracle *scriptedOracle) *env {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := store.NewRedisStoreWithClient(client, "oracle")

	e := &env{
		client:      client,
		store:       st,
		oracle:      oracle,
		graph:       causal.NewGraphStore(repository.NewRedisGraphRepository(st)),
		predictions: repository.NewRedisPredictionRepository(st),
		evaluations: repository.NewRedisEvaluationRepository(st),
		cycles:      repository.NewRedisCycleRepository(st),
		statuses:    repository.NewRedisReplayStatusRepository(st),
		savings:     repository.NewRedisSavingsRepository(st),
		learningLog: repository.NewRedisLearningLog(st, 0),
	}
	e.spot = ingestion.NewSpotPricingSource(
		ingestion.WithCatalogURL("http://127.0.0.1:1/instances.json"),
		ingestion.WithSpotClock(func() time.Time { return baseTime }))
	signals := repository.NewRedisSignalStore(st, 0)
	ingestor := ingestion.NewIngestor(signals, []service.SignalSource{e.spot})
	clock := func() time.Time { return baseTime }
	e.evaluator = evaluation.NewEvaluator(e.predictions, e.evaluations, evaluation.WithClock(clock))
	learner := learning.NewLearner(e.graph, e.learningLog,
		learning.WithLocker(repository.NewRedisGraphLock(st, time.Minute, 5*time.Second)),
		learning.WithClock(clock))

	e.orch = NewOrchestrator(
		repository.NewRedisCycleCounter(st),
		ingestor,
		models.SourceAWSSpot,
		signals,
		e.graph,
		oracle,
		e.predictions,
		e.evaluator,
		learner,
		e.cycles,
		repository.NoopEventPublisher{},
		nil,
		Target{Instance: "p3.2xlarge", Zone: "us-east-1a"},
		nil,
	)
	return e
}

func (e *env) edgeWeights(t *testing.T) map[string]float64 {
	t.Helper()
	g, err := e.graph.Get(context.Background())
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	out := make(map[string]float64, len(g.Edges))
	for k, edge := range g.Edges {
		out[k] = edge.Weight
	}
	return out
}
