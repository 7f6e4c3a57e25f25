package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ComputeOracle/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	mu   sync.Mutex
	got  []string
	fail bool
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "echo" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := ParsePayload[struct {
		Value string `json:"value"`
	}](payload)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.got = append(j.got, p.Value)
	j.mu.Unlock()
	if j.fail {
		return errors.New("boom")
	}
	return nil
}

func (j *recordingJob) seen() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.got...)
}

func newTestQueue(t *testing.T, cfg *QueueConfig) *RedisQueue {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(logger.Nop(), cfg, client, WithKeyPrefix("test:queue"))
}

func TestQueueDeliversToRegisteredJob(t *testing.T) {
	q := newTestQueue(t, nil)
	job := &recordingJob{}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	id, err := q.Enqueue(context.Background(), "echo", map[string]string{"value": "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Eventually(t, func() bool {
		return len(job.seen()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"hello"}, job.seen())
}

func TestQueueFailedJobWithoutRetriesGoesToDeadLetters(t *testing.T) {
	q := newTestQueue(t, &QueueConfig{RetryLimit: 0})
	q.RegisterJob(&recordingJob{fail: true})
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	_, err := q.Enqueue(context.Background(), "echo", map[string]string{"value": "x"})
	require.NoError(t, err)

	var dead []Message
	assert.Eventually(t, func() bool {
		dead, err = q.DeadLetters(context.Background(), 10)
		return err == nil && len(dead) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "boom", dead[0].LastError)
	assert.Equal(t, "echo", dead[0].Type)
}

func TestQueueStartTwice(t *testing.T) {
	q := newTestQueue(t, nil)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	assert.Error(t, q.Start())
}

func TestParsePayloadRejectsEmpty(t *testing.T) {
	_, err := ParsePayload[map[string]any](nil)
	assert.Error(t, err)
}
