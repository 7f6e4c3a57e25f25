package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/repository"
	"ComputeOracle/pkg/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	id      string
	signals []models.Signal
	err     error
}

func (s *stubSource) ID() string   { return s.id }
func (s *stubSource) Name() string { return s.id }
func (s *stubSource) FetchLatest(context.Context) ([]models.Signal, error) {
	return s.signals, s.err
}
func (s *stubSource) FetchHistory(context.Context, time.Time, time.Time) ([]models.Signal, error) {
	return s.signals, s.err
}

type memArchive struct {
	stored []models.Signal
	err    error
}

func (m *memArchive) Init(context.Context) error { return nil }
func (m *memArchive) StoreBatch(_ context.Context, s []models.Signal) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, s...)
	return nil
}
func (m *memArchive) Query(_ context.Context, from, to time.Time) ([]models.Signal, error) {
	var out []models.Signal
	for _, s := range m.stored {
		if !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *memArchive) Health(context.Context) error { return nil }
func (m *memArchive) Close() error                 { return nil }

func newSignalStore(t *testing.T) *repository.RedisSignalStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewRedisSignalStore(store.NewRedisStoreWithClient(client, "oracle"), 0)
}

func testDemandSignal(v float64) models.Signal {
	return models.Signal{Source: models.SourceEIAElectricity, Name: "PJM demand", Value: v, Unit: "MWh", Timestamp: clockNow}
}

func TestIngestStoresAndArchives(t *testing.T) {
	signals := newSignalStore(t)
	archive := &memArchive{}
	src := &stubSource{id: "eia_electricity", signals: []models.Signal{testDemandSignal(142500)}}
	ing := NewIngestor(signals, []service.SignalSource{src}, WithArchive(archive))

	n, err := ing.Ingest(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, archive.stored, 1)

	latest, err := signals.Latest(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 142500.0, latest[0].Value)
}

func TestIngestArchiveFailureIsNotFatal(t *testing.T) {
	signals := newSignalStore(t)
	src := &stubSource{id: "eia_electricity", signals: []models.Signal{testDemandSignal(1)}}
	ing := NewIngestor(signals, []service.SignalSource{src}, WithArchive(&memArchive{err: errors.New("down")}))

	n, err := ing.Ingest(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	signals := newSignalStore(t)
	good := NewSpotPricingSource(WithCatalogURL("http://127.0.0.1:1/unreachable"),
		WithSpotClock(func() time.Time { return clockNow }))
	bad := &stubSource{id: "weather", err: errors.New("no api key")}
	ing := NewIngestor(signals, []service.SignalSource{good, bad})

	results := ing.IngestAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, models.IngestResult{Source: models.SourceAWSSpot, Count: 9}, results[0])
	assert.Equal(t, "weather", results[1].Source)
	assert.Equal(t, 0, results[1].Count)
	assert.Contains(t, results[1].Error, "no api key")
}

func TestIngestByID(t *testing.T) {
	ing := NewIngestor(newSignalStore(t), []service.SignalSource{&stubSource{id: "a"}})

	n, err := ing.IngestByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = ing.IngestByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestArchiveSource(t *testing.T) {
	archive := &memArchive{stored: []models.Signal{
		{Source: "eia_electricity", Name: "PJM demand", Value: 1, Timestamp: clockNow},
		{Source: "eia_electricity", Name: "PJM demand", Value: 2, Timestamp: clockNow.Add(2 * time.Hour)},
	}}
	src := NewArchiveSource(archive)
	assert.Equal(t, models.SourceArchive, src.ID())

	latest, err := src.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, latest)

	hist, err := src.FetchHistory(context.Background(), clockNow, clockNow.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 1.0, hist[0].Value)
}
