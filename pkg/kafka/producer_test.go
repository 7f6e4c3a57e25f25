package kafka

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(1),
		WithAsync(true),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.True(t, p.writer.Async)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
}

func TestProducerMetricsRegisterOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newProducerMetrics(reg)
	b := newProducerMetrics(reg)

	a.observe("t", "gzip", 10, 1, 0, nil)
	b.observe("t", "gzip", 5, 1, 0, nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(a.msgs.WithLabelValues("t", "gzip", "ok")))
	assert.Equal(t, float64(15), testutil.ToFloat64(a.bytes.WithLabelValues("t", "gzip")))
}

func TestEncode(t *testing.T) {
	v, err := encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v))

	v, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(v))
}
