package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: key not found")
	ErrConflict = errors.New("store: concurrent modification, retries exhausted")
)

// UpdateFunc receives the current raw value (nil when absent) and returns the
// value to write back.
type UpdateFunc func(current []byte) ([]byte, error)

// Service is the durable store used by every repository: whole JSON
// documents, bounded lists, sorted indices, hashes and an atomic counter.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error

	Increment(ctx context.Context, key string) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)

	PushCapped(ctx context.Context, key string, capacity int64, values ...interface{}) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error

	HSet(ctx context.Context, key, field string, value interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) (released bool, err error)

	Ping(ctx context.Context) error
}
