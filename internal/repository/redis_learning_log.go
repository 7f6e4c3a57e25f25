package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/pkg/store"
)

const learningLogKey = "learning:log"

// DefaultLearningLogCap bounds the learning log length.
const DefaultLearningLogCap int64 = 1000

// RedisLearningLog keeps events newest first, trimmed to capacity.
type RedisLearningLog struct {
	store    store.Service
	capacity int64
}

func NewRedisLearningLog(s store.Service, capacity int64) *RedisLearningLog {
	if capacity <= 0 {
		capacity = DefaultLearningLogCap
	}
	return &RedisLearningLog{store: s, capacity: capacity}
}

// Append pushes events in order, so the last event ends up at the head.
func (l *RedisLearningLog) Append(ctx context.Context, events ...models.LearningEvent) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]interface{}, len(events))
	for i := range events {
		values[i] = events[i]
	}
	if err := l.store.PushCapped(ctx, learningLogKey, l.capacity, values...); err != nil {
		return fmt.Errorf("append learning log: %w", err)
	}
	return nil
}

func (l *RedisLearningLog) Recent(ctx context.Context, limit int64) ([]models.LearningEvent, error) {
	if limit <= 0 {
		return []models.LearningEvent{}, nil
	}
	raw, err := l.store.ListRange(ctx, learningLogKey, 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("read learning log: %w", err)
	}
	out := make([]models.LearningEvent, 0, len(raw))
	for _, item := range raw {
		var ev models.LearningEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
