package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/pkg/store"
	"ComputeOracle/pkg/util"
)

const signalsLatestKey = "signals:latest"

func signalHistoryKey(source, name string) string {
	return "signals:history:" + source + ":" + name
}

// farFuture caps open-ended score ranges.
var farFuture = float64(time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC).Unix())

// RedisSignalStore keeps the latest value per signal in a hash and each
// signal's history in a sorted set scored by unix seconds.
type RedisSignalStore struct {
	store  store.Service
	retain time.Duration
}

func NewRedisSignalStore(s store.Service, retain time.Duration) *RedisSignalStore {
	return &RedisSignalStore{store: s, retain: retain}
}

// Store writes the batch. change_pct is derived from the previously stored
// latest value when the caller did not supply one.
func (r *RedisSignalStore) Store(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	previous, err := r.latestByKey(ctx)
	if err != nil {
		return err
	}

	for _, s := range signals {
		if s.ChangePct == nil {
			if prev, ok := previous[s.Key()]; ok && prev.Value != 0 && s.Timestamp.After(prev.Timestamp) {
				pct := util.Round((s.Value-prev.Value)/prev.Value*100, 2)
				s.ChangePct = &pct
			}
		}
		if prev, ok := previous[s.Key()]; !ok || !prev.Timestamp.After(s.Timestamp) {
			if err := r.store.HSet(ctx, signalsLatestKey, s.Key(), s); err != nil {
				return fmt.Errorf("store latest %s: %w", s.Key(), err)
			}
			previous[s.Key()] = s
		}

		point, err := json.Marshal(models.DataPoint{Timestamp: s.Timestamp, Value: s.Value})
		if err != nil {
			return err
		}
		hk := signalHistoryKey(s.Source, s.Name)
		if err := r.store.ZAdd(ctx, hk, float64(s.Timestamp.Unix()), string(point)); err != nil {
			return fmt.Errorf("store history %s: %w", s.Key(), err)
		}
		if r.retain > 0 {
			cutoff := float64(time.Now().Add(-r.retain).Unix())
			if err := r.store.ZRemRangeByScore(ctx, hk, 0, cutoff); err != nil {
				return fmt.Errorf("trim history %s: %w", s.Key(), err)
			}
		}
	}
	return nil
}

// Latest returns the latest value of every known signal, ordered by key.
func (r *RedisSignalStore) Latest(ctx context.Context) ([]models.Signal, error) {
	byKey, err := r.latestByKey(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.Signal, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out, nil
}

func (r *RedisSignalStore) History(ctx context.Context, source, name string, since time.Time) ([]models.DataPoint, error) {
	raw, err := r.store.ZRangeByScore(ctx, signalHistoryKey(source, name), float64(since.Unix()), farFuture)
	if err != nil {
		return nil, fmt.Errorf("signal history %s:%s: %w", source, name, err)
	}
	out := make([]models.DataPoint, 0, len(raw))
	for _, item := range raw {
		var p models.DataPoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisSignalStore) latestByKey(ctx context.Context) (map[string]models.Signal, error) {
	raw, err := r.store.HGetAll(ctx, signalsLatestKey)
	if err != nil {
		return nil, fmt.Errorf("latest signals: %w", err)
	}
	out := make(map[string]models.Signal, len(raw))
	for k, v := range raw {
		var s models.Signal
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			continue
		}
		out[k] = s
	}
	return out, nil
}
