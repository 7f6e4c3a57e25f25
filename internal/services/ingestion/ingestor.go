package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownSource = errors.New("unknown signal source")

// Ingestor pulls the latest batch from each source into the signal store,
// mirroring it to the archive when one is configured.
type Ingestor struct {
	sources []service.SignalSource
	store   domrepo.SignalStore
	archive domrepo.SignalArchive
	metrics domrepo.Metrics
	lgr     *logger.Logger
}

type IngestorOption func(*Ingestor)

func WithArchive(a domrepo.SignalArchive) IngestorOption { return func(i *Ingestor) { i.archive = a } }
func WithIngestMetrics(m domrepo.Metrics) IngestorOption { return func(i *Ingestor) { i.metrics = m } }
func WithIngestLogger(l *logger.Logger) IngestorOption   { return func(i *Ingestor) { i.lgr = l } }

func NewIngestor(store domrepo.SignalStore, sources []service.SignalSource, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{sources: sources, store: store, lgr: logger.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Sources returns the registered sources in registration order.
func (i *Ingestor) Sources() []service.SignalSource {
	return append([]service.SignalSource(nil), i.sources...)
}

func (i *Ingestor) Source(id string) (service.SignalSource, bool) {
	for _, s := range i.sources {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Ingest fetches and stores one source, returning the number of signals stored.
func (i *Ingestor) Ingest(ctx context.Context, src service.SignalSource) (int, error) {
	start := time.Now()
	signals, err := src.FetchLatest(ctx)
	if err != nil {
		i.recordError("ingest_fetch")
		return 0, fmt.Errorf("ingest %s: fetch: %w", src.ID(), err)
	}
	if len(signals) == 0 {
		return 0, nil
	}
	if err := i.store.Store(ctx, signals); err != nil {
		i.recordError("ingest_store")
		return 0, fmt.Errorf("ingest %s: store: %w", src.ID(), err)
	}
	if i.archive != nil {
		if err := i.archive.StoreBatch(ctx, signals); err != nil {
			i.recordError("archive_store")
			i.lgr.Warn("archive write failed",
				logger.String("source", src.ID()),
				logger.Error(err))
		}
	}
	if i.metrics != nil {
		i.metrics.RecordLatency("ingest_"+src.ID(), time.Since(start).Seconds())
	}
	i.lgr.Debug("ingested signals",
		logger.String("source", src.ID()),
		logger.Int("count", len(signals)))
	return len(signals), nil
}

// IngestByID runs Ingest for the source registered under id.
func (i *Ingestor) IngestByID(ctx context.Context, id string) (int, error) {
	src, ok := i.Source(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return i.Ingest(ctx, src)
}

// IngestAll runs every source concurrently. A failing source is reported in
// its own result and never stops the others.
func (i *Ingestor) IngestAll(ctx context.Context) []models.IngestResult {
	results := make([]models.IngestResult, len(i.sources))
	g, gctx := errgroup.WithContext(ctx)
	for idx, src := range i.sources {
		idx, src := idx, src
		g.Go(func() error {
			res := models.IngestResult{Source: src.ID()}
			n, err := i.Ingest(gctx, src)
			if err != nil {
				res.Error = err.Error()
				i.lgr.Warn("source ingestion failed",
					logger.String("source", src.ID()),
					logger.Error(err))
			}
			res.Count = n
			results[idx] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (i *Ingestor) recordError(kind string) {
	if i.metrics != nil {
		i.metrics.RecordError(kind)
	}
}
