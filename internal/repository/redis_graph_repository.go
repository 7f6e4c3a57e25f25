package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/pkg/store"
)

const (
	graphKey     = "causal_graph"
	graphLockKey = "lock:causal_graph"
)

// ErrLockTimeout is returned when the graph lock could not be taken in time.
var ErrLockTimeout = errors.New("graph lock: timed out waiting")

// RedisGraphRepository stores the causal graph as one JSON document.
type RedisGraphRepository struct {
	store store.Service
}

func NewRedisGraphRepository(s store.Service) *RedisGraphRepository {
	return &RedisGraphRepository{store: s}
}

func (r *RedisGraphRepository) Load(ctx context.Context) (*models.CausalGraph, error) {
	var g models.CausalGraph
	if err := r.store.Get(ctx, graphKey, &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load graph: %w", err)
	}
	if g.Edges == nil {
		g.Edges = map[string]*models.CausalEdge{}
	}
	return &g, nil
}

// Mutate runs fn under WATCH on the graph key. fn may run more than once if
// another writer interleaves.
func (r *RedisGraphRepository) Mutate(ctx context.Context, fn domrepo.GraphMutation) (*models.CausalGraph, error) {
	var result *models.CausalGraph
	err := r.store.Update(ctx, graphKey, func(current []byte) ([]byte, error) {
		var g *models.CausalGraph
		if current != nil {
			g = &models.CausalGraph{}
			if err := json.Unmarshal(current, g); err != nil {
				return nil, fmt.Errorf("decode graph: %w", err)
			}
			if g.Edges == nil {
				g.Edges = map[string]*models.CausalEdge{}
			}
		}
		next, err := fn(g)
		if err != nil {
			return nil, err
		}
		result = next
		return json.Marshal(next)
	})
	if err != nil {
		return nil, fmt.Errorf("mutate graph: %w", err)
	}
	return result, nil
}

// RedisGraphLock is a SET NX lock held across one learning pass.
type RedisGraphLock struct {
	store store.Service
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
}

func NewRedisGraphLock(s store.Service, ttl, wait time.Duration) *RedisGraphLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGraphLock{store: s, ttl: ttl, wait: wait, poll: 25 * time.Millisecond}
}

func (l *RedisGraphLock) Lock(ctx context.Context) (func(), error) {
	deadline := time.Now().Add(l.wait)
	for {
		token, err := l.store.TryLock(ctx, graphLockKey, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("graph lock: %w", err)
		}
		if token != "" {
			return func() { _, _ = l.store.Unlock(context.Background(), graphLockKey, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
