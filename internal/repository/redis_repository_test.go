package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisStoreWithClient(client, "oracle"), s
}

func TestGraphRepositoryLoadMissing(t *testing.T) {
	st, _ := newTestStore(t)
	repo := NewRedisGraphRepository(st)

	g, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGraphRepositoryMutateCreatesAndUpdates(t *testing.T) {
	st, mr := newTestStore(t)
	repo := NewRedisGraphRepository(st)
	ctx := context.Background()

	g, err := repo.Mutate(ctx, func(g *models.CausalGraph) (*models.CausalGraph, error) {
		assert.Nil(t, g)
		return &models.CausalGraph{Edges: map[string]*models.CausalEdge{
			"a->b": {From: "a", To: "b", Weight: 0.5},
		}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)
	assert.True(t, mr.Exists("oracle:causal_graph"))

	g, err = repo.Mutate(ctx, func(g *models.CausalGraph) (*models.CausalGraph, error) {
		require.NotNil(t, g)
		g.Version++
		return g, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Version)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version)
	assert.Equal(t, 0.5, loaded.Edges["a->b"].Weight)
}

func TestGraphRepositoryConcurrentMutateLosesNoUpdates(t *testing.T) {
	st, _ := newTestStore(t)
	repo := NewRedisGraphRepository(st)
	ctx := context.Background()

	_, err := repo.Mutate(ctx, func(*models.CausalGraph) (*models.CausalGraph, error) {
		return &models.CausalGraph{Edges: map[string]*models.CausalEdge{}}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := repo.Mutate(ctx, func(g *models.CausalGraph) (*models.CausalGraph, error) {
					g.Version++
					return g, nil
				})
				if err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	g, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Version)
}

func TestGraphLockExcludesSecondHolder(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	first := NewRedisGraphLock(st, time.Minute, 0)
	unlock, err := first.Lock(ctx)
	require.NoError(t, err)

	second := NewRedisGraphLock(st, time.Minute, 50*time.Millisecond)
	_, err = second.Lock(ctx)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock2, err := second.Lock(ctx)
	require.NoError(t, err)
	unlock2()
}

func TestGraphLockExpiredHolderCannotReleaseSuccessor(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	slow := NewRedisGraphLock(st, time.Second, 0)
	unlockSlow, err := slow.Lock(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	next := NewRedisGraphLock(st, time.Minute, 0)
	unlockNext, err := next.Lock(ctx)
	require.NoError(t, err)

	unlockSlow()

	third := NewRedisGraphLock(st, time.Minute, 50*time.Millisecond)
	_, err = third.Lock(ctx)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlockNext()
	unlockThird, err := third.Lock(ctx)
	require.NoError(t, err)
	unlockThird()
}

func TestPredictionRepositoryIndexOrder(t *testing.T) {
	st, _ := newTestStore(t)
	repo := NewRedisPredictionRepository(st)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"pred_a", "pred_b", "pred_c"} {
		p := &models.Prediction{PredictionID: id, Cycle: int64(i + 1), Timestamp: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Save(ctx, p))
		require.NoError(t, repo.Index(ctx, p))
	}

	ids, err := repo.LatestIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"pred_c", "pred_b"}, ids)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(3), recent[0].Cycle)

	missing, err := repo.Get(ctx, "pred_zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEvaluationRepositoryRecentByCycle(t *testing.T) {
	st, _ := newTestStore(t)
	repo := NewRedisEvaluationRepository(st)
	ctx := context.Background()

	for _, c := range []int64{3, 1, 2} {
		require.NoError(t, repo.Save(ctx, &models.Evaluation{PredictionID: "p" + string(rune('0'+c)), Cycle: c}))
	}

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].Cycle)
	assert.Equal(t, int64(1), all[2].Cycle)

	two, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestLearningLogCapped(t *testing.T) {
	st, _ := newTestStore(t)
	log := NewRedisLearningLog(st, 3)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, log.Append(ctx, models.LearningEvent{Cycle: i, Type: models.EventEdgeWeightUpdate}))
	}

	events, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(5), events[0].Cycle)
	assert.Equal(t, int64(3), events[2].Cycle)
}

func TestCycleCounterMonotonic(t *testing.T) {
	st, _ := newTestStore(t)
	c := NewRedisCycleCounter(st)
	ctx := context.Background()

	cur, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)

	var wg sync.WaitGroup
	seen := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Next(ctx)
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, 20)

	cur, err = c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), cur)
}

func TestReplayStatusAndCycleRecords(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	replays := NewRedisReplayStatusRepository(st)
	missing, err := replays.Get(ctx, "replay_none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, replays.Save(ctx, &models.ReplayStatus{ReplayID: "replay_1", Status: models.ReplayRunning}))
	got, err := replays.Get(ctx, "replay_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReplayRunning, got.Status)

	cycles := NewRedisCycleRepository(st)
	require.NoError(t, cycles.Save(ctx, &models.CycleRecord{Cycle: 7, PredictionID: "pred_x"}))
	rec, err := cycles.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "pred_x", rec.PredictionID)

	savings := NewRedisSavingsRepository(st)
	require.NoError(t, savings.Save(ctx, &models.CumulativeSavings{TotalUSD: 1.5}))
	sv, err := savings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.5, sv.TotalUSD)
}

func TestSignalStoreLatestHistoryAndChange(t *testing.T) {
	st, _ := newTestStore(t)
	ss := NewRedisSignalStore(st, 0)
	ctx := context.Background()
	t0 := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	sig := models.Signal{Source: models.SourceAWSSpot, Name: "p3.2xlarge us-east-1a", Value: 1.00, Unit: "USD/hr", Timestamp: t0}
	require.NoError(t, ss.Store(ctx, []models.Signal{sig}))

	sig.Value = 1.10
	sig.Timestamp = t0.Add(time.Hour)
	require.NoError(t, ss.Store(ctx, []models.Signal{sig}))

	latest, err := ss.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 1.10, latest[0].Value)
	require.NotNil(t, latest[0].ChangePct)
	assert.InDelta(t, 10.0, *latest[0].ChangePct, 1e-9)

	history, err := ss.History(ctx, models.SourceAWSSpot, "p3.2xlarge us-east-1a", t0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1.00, history[0].Value)

	// older data does not replace the newer latest value
	old := sig
	old.Value = 0.5
	old.Timestamp = t0.Add(-time.Hour)
	require.NoError(t, ss.Store(ctx, []models.Signal{old}))
	latest, err = ss.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.10, latest[0].Value)
}

func TestNoopEventPublisher(t *testing.T) {
	var p NoopEventPublisher
	assert.NoError(t, p.PublishCycle(context.Background(), &models.CycleRecord{}))
	assert.NoError(t, p.PublishLearningEvents(context.Background(), nil))
	assert.NoError(t, p.Close())
}
