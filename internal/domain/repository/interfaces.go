package repository

import (
	"context"
	"time"

	"ComputeOracle/internal/domain/models"
)

// GraphMutation receives the stored graph (nil when none exists yet) and
// returns the graph to write back.
type GraphMutation func(g *models.CausalGraph) (*models.CausalGraph, error)

// GraphRepository persists the single causal graph document.
type GraphRepository interface {
	Load(ctx context.Context) (*models.CausalGraph, error)
	// Mutate applies fn as one check-and-set against the stored document.
	Mutate(ctx context.Context, fn GraphMutation) (*models.CausalGraph, error)
}

// Locker serialises learning passes over the graph.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

type PredictionRepository interface {
	Save(ctx context.Context, p *models.Prediction) error
	Index(ctx context.Context, p *models.Prediction) error
	Get(ctx context.Context, id string) (*models.Prediction, error)
	// LatestIDs returns up to n ids, newest first.
	LatestIDs(ctx context.Context, n int64) ([]string, error)
	Recent(ctx context.Context, n int64) ([]models.Prediction, error)
}

type EvaluationRepository interface {
	Save(ctx context.Context, e *models.Evaluation) error
	Get(ctx context.Context, predictionID string) (*models.Evaluation, error)
	// Recent returns up to n evaluations ordered by cycle descending; n <= 0 means all.
	Recent(ctx context.Context, n int64) ([]models.Evaluation, error)
}

type LearningLog interface {
	Append(ctx context.Context, events ...models.LearningEvent) error
	Recent(ctx context.Context, limit int64) ([]models.LearningEvent, error)
}

// CycleCounter is the process-wide monotonic cycle number.
type CycleCounter interface {
	Next(ctx context.Context) (int64, error)
	Current(ctx context.Context) (int64, error)
}

type CycleRepository interface {
	Save(ctx context.Context, rec *models.CycleRecord) error
	Get(ctx context.Context, cycle int64) (*models.CycleRecord, error)
}

type ReplayStatusRepository interface {
	Save(ctx context.Context, s *models.ReplayStatus) error
	Get(ctx context.Context, replayID string) (*models.ReplayStatus, error)
}

type SavingsRepository interface {
	Save(ctx context.Context, s *models.CumulativeSavings) error
	Get(ctx context.Context) (*models.CumulativeSavings, error)
}

// SignalStore keeps the latest value per signal plus per-signal history.
type SignalStore interface {
	Store(ctx context.Context, signals []models.Signal) error
	Latest(ctx context.Context) ([]models.Signal, error)
	History(ctx context.Context, source, name string, since time.Time) ([]models.DataPoint, error)
}

// SignalArchive is the long-term signal table.
type SignalArchive interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, signals []models.Signal) error
	Query(ctx context.Context, from, to time.Time) ([]models.Signal, error)
	Health(ctx context.Context) error
	Close() error
}

type EventPublisher interface {
	PublishLearningEvents(ctx context.Context, events []models.LearningEvent) error
	PublishCycle(ctx context.Context, rec *models.CycleRecord) error
	Close() error
}

type Metrics interface {
	RecordCycle(mode string, seconds float64)
	RecordLearningEvent(eventType string)
	RecordGraphVersion(version int)
	RecordAccuracy(mae, directionalAccuracy float64)
	RecordReplayProgress(pct float64)
	RecordReplayFinished(status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
