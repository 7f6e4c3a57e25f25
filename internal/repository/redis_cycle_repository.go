package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/pkg/store"
)

const (
	cycleCountKey = "cycle_count"
	savingsKey    = "scheduler:savings"
)

// RedisCycleCounter advances the shared cycle number with INCR.
type RedisCycleCounter struct {
	store store.Service
}

func NewRedisCycleCounter(s store.Service) *RedisCycleCounter {
	return &RedisCycleCounter{store: s}
}

func (c *RedisCycleCounter) Next(ctx context.Context) (int64, error) {
	n, err := c.store.Increment(ctx, cycleCountKey)
	if err != nil {
		return 0, fmt.Errorf("advance cycle counter: %w", err)
	}
	return n, nil
}

func (c *RedisCycleCounter) Current(ctx context.Context) (int64, error) {
	return c.store.GetInt(ctx, cycleCountKey)
}

type RedisCycleRepository struct {
	store store.Service
}

func NewRedisCycleRepository(s store.Service) *RedisCycleRepository {
	return &RedisCycleRepository{store: s}
}

func (r *RedisCycleRepository) Save(ctx context.Context, rec *models.CycleRecord) error {
	key := "cycle:" + strconv.FormatInt(rec.Cycle, 10)
	if err := r.store.Set(ctx, key, rec, 0); err != nil {
		return fmt.Errorf("save cycle %d: %w", rec.Cycle, err)
	}
	return nil
}

func (r *RedisCycleRepository) Get(ctx context.Context, cycle int64) (*models.CycleRecord, error) {
	var rec models.CycleRecord
	if err := r.store.Get(ctx, "cycle:"+strconv.FormatInt(cycle, 10), &rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cycle %d: %w", cycle, err)
	}
	return &rec, nil
}

type RedisReplayStatusRepository struct {
	store store.Service
}

func NewRedisReplayStatusRepository(s store.Service) *RedisReplayStatusRepository {
	return &RedisReplayStatusRepository{store: s}
}

func (r *RedisReplayStatusRepository) Save(ctx context.Context, s *models.ReplayStatus) error {
	if err := r.store.Set(ctx, "replay:"+s.ReplayID, s, 0); err != nil {
		return fmt.Errorf("save replay status %s: %w", s.ReplayID, err)
	}
	return nil
}

func (r *RedisReplayStatusRepository) Get(ctx context.Context, replayID string) (*models.ReplayStatus, error) {
	var s models.ReplayStatus
	if err := r.store.Get(ctx, "replay:"+replayID, &s); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get replay status %s: %w", replayID, err)
	}
	return &s, nil
}

type RedisSavingsRepository struct {
	store store.Service
}

func NewRedisSavingsRepository(s store.Service) *RedisSavingsRepository {
	return &RedisSavingsRepository{store: s}
}

func (r *RedisSavingsRepository) Save(ctx context.Context, s *models.CumulativeSavings) error {
	return r.store.Set(ctx, savingsKey, s, 0)
}

func (r *RedisSavingsRepository) Get(ctx context.Context) (*models.CumulativeSavings, error) {
	var s models.CumulativeSavings
	if err := r.store.Get(ctx, savingsKey, &s); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
