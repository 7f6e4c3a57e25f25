package ingestion

import (
	"context"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
)

// ArchiveSource replays signals previously written to the long-term archive.
// It has no live feed.
type ArchiveSource struct {
	archive domrepo.SignalArchive
}

func NewArchiveSource(archive domrepo.SignalArchive) *ArchiveSource {
	return &ArchiveSource{archive: archive}
}

func (a *ArchiveSource) ID() string   { return models.SourceArchive }
func (a *ArchiveSource) Name() string { return "Signal Archive" }

func (a *ArchiveSource) FetchLatest(context.Context) ([]models.Signal, error) {
	return nil, nil
}

func (a *ArchiveSource) FetchHistory(ctx context.Context, start, end time.Time) ([]models.Signal, error) {
	return a.archive.Query(ctx, start, end)
}
