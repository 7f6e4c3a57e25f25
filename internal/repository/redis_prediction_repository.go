package repository

import (
	"context"
	"errors"
	"fmt"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/pkg/store"
)

const (
	predictionIndexKey = "predictions:index"
	evaluationIndexKey = "evaluations:index"
)

func predictionKey(id string) string { return "prediction:" + id }
func evaluationKey(id string) string { return "eval:" + id }

type RedisPredictionRepository struct {
	store store.Service
}

func NewRedisPredictionRepository(s store.Service) *RedisPredictionRepository {
	return &RedisPredictionRepository{store: s}
}

func (r *RedisPredictionRepository) Save(ctx context.Context, p *models.Prediction) error {
	if err := r.store.Set(ctx, predictionKey(p.PredictionID), p, 0); err != nil {
		return fmt.Errorf("save prediction %s: %w", p.PredictionID, err)
	}
	return nil
}

// Index scores the prediction by its timestamp in seconds.
func (r *RedisPredictionRepository) Index(ctx context.Context, p *models.Prediction) error {
	score := float64(p.Timestamp.UnixNano()) / 1e9
	if err := r.store.ZAdd(ctx, predictionIndexKey, score, p.PredictionID); err != nil {
		return fmt.Errorf("index prediction %s: %w", p.PredictionID, err)
	}
	return nil
}

func (r *RedisPredictionRepository) Get(ctx context.Context, id string) (*models.Prediction, error) {
	var p models.Prediction
	if err := r.store.Get(ctx, predictionKey(id), &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prediction %s: %w", id, err)
	}
	return &p, nil
}

func (r *RedisPredictionRepository) LatestIDs(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := r.store.ZRevRange(ctx, predictionIndexKey, 0, n-1)
	if err != nil {
		return nil, fmt.Errorf("latest predictions: %w", err)
	}
	return ids, nil
}

// Recent loads up to n indexed predictions, newest first. Ids whose
// document is missing are skipped.
func (r *RedisPredictionRepository) Recent(ctx context.Context, n int64) ([]models.Prediction, error) {
	ids, err := r.LatestIDs(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]models.Prediction, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

type RedisEvaluationRepository struct {
	store store.Service
}

func NewRedisEvaluationRepository(s store.Service) *RedisEvaluationRepository {
	return &RedisEvaluationRepository{store: s}
}

func (r *RedisEvaluationRepository) Save(ctx context.Context, e *models.Evaluation) error {
	if err := r.store.Set(ctx, evaluationKey(e.PredictionID), e, 0); err != nil {
		return fmt.Errorf("save evaluation %s: %w", e.PredictionID, err)
	}
	if err := r.store.ZAdd(ctx, evaluationIndexKey, float64(e.Cycle), e.PredictionID); err != nil {
		return fmt.Errorf("index evaluation %s: %w", e.PredictionID, err)
	}
	return nil
}

func (r *RedisEvaluationRepository) Get(ctx context.Context, predictionID string) (*models.Evaluation, error) {
	var e models.Evaluation
	if err := r.store.Get(ctx, evaluationKey(predictionID), &e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get evaluation %s: %w", predictionID, err)
	}
	return &e, nil
}

func (r *RedisEvaluationRepository) Recent(ctx context.Context, n int64) ([]models.Evaluation, error) {
	stop := n - 1
	if n <= 0 {
		stop = -1
	}
	ids, err := r.store.ZRevRange(ctx, evaluationIndexKey, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("recent evaluations: %w", err)
	}
	out := make([]models.Evaluation, 0, len(ids))
	for _, id := range ids {
		e, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}
