package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/queue"
	"ComputeOracle/pkg/util"

	"github.com/google/uuid"
)

// ErrInvalidRange is returned when a replay window is empty or inverted.
var ErrInvalidRange = errors.New("replay end must be after start")

// ReplayEngine re-runs the cycle step over historical signal batches, one
// hour-aligned bucket per cycle.
type ReplayEngine struct {
	orch        *Orchestrator
	primary     service.SignalSource
	secondary   []service.SignalSource
	statuses    domrepo.ReplayStatusRepository
	queue       queue.Publisher
	metrics     domrepo.Metrics
	statusEvery int
	lgr         *logger.Logger
	now         func() time.Time
}

func NewReplayEngine(
	orch *Orchestrator,
	primary service.SignalSource,
	secondary []service.SignalSource,
	statuses domrepo.ReplayStatusRepository,
	q queue.Publisher,
	metrics domrepo.Metrics,
	statusEvery int,
	lgr *logger.Logger,
) *ReplayEngine {
	if statusEvery <= 0 {
		statusEvery = 5
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &ReplayEngine{
		orch:        orch,
		primary:     primary,
		secondary:   secondary,
		statuses:    statuses,
		queue:       q,
		metrics:     metrics,
		statusEvery: statusEvery,
		lgr:         lgr.With(logger.String("component", "replay")),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NewReplayID returns "replay_" plus eight hex characters.
func NewReplayID() string {
	return "replay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Start validates the window, records a running status and queues the run.
func (e *ReplayEngine) Start(ctx context.Context, start, end time.Time) (*models.ReplayStartResult, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	id := NewReplayID()
	hours := util.HoursBetween(start, end)

	st := e.newStatus(id, start, end)
	st.TotalSteps = hours
	if err := e.statuses.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("start replay: %w", err)
	}
	if _, err := e.queue.Enqueue(ctx, ReplayJobType, ReplayPayload{ReplayID: id, Start: start, End: end}); err != nil {
		e.fail(ctx, st, err)
		return nil, fmt.Errorf("start replay: %w", err)
	}

	e.lgr.Info("replay queued",
		logger.String("replay_id", id),
		logger.String("start", start.Format(time.RFC3339)),
		logger.String("end", end.Format(time.RFC3339)),
		logger.Int("estimated_cycles", hours))
	return &models.ReplayStartResult{ReplayID: id, Status: models.ReplayStarted, EstimatedCycles: hours}, nil
}

// Status returns the stored status, or a not_found placeholder.
func (e *ReplayEngine) Status(ctx context.Context, replayID string) (*models.ReplayStatus, error) {
	st, err := e.statuses.Get(ctx, replayID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return &models.ReplayStatus{ReplayID: replayID, Status: models.ReplayNotFound}, nil
	}
	return st, nil
}

// Run executes the replay synchronously. A failure is recorded on the status
// and returned; the run is never retried from the middle.
func (e *ReplayEngine) Run(ctx context.Context, replayID string, start, end time.Time) (*models.ReplayStatus, error) {
	if replayID == "" {
		replayID = NewReplayID()
	}
	start, end = start.UTC(), end.UTC()
	st := e.newStatus(replayID, start, end)
	if queued, err := e.statuses.Get(ctx, replayID); err == nil && queued != nil {
		st.StartedAt = queued.StartedAt
	}

	buckets, keys, err := e.loadBuckets(ctx, start, end)
	if err != nil {
		return st, e.fail(ctx, st, err)
	}
	st.TotalSteps = len(keys)
	if err := e.statuses.Save(ctx, st); err != nil {
		return st, fmt.Errorf("replay %s: %w", replayID, err)
	}

	var previousID string
	for idx, key := range keys {
		if err := ctx.Err(); err != nil {
			return st, e.fail(ctx, st, err)
		}
		cycle, err := e.orch.counter.Next(ctx)
		if err != nil {
			return st, e.fail(ctx, st, err)
		}
		signals := buckets[key]
		var actual *float64
		if price, ok := models.FindPrice(signals, e.orch.target.Instance, e.orch.target.Zone); ok {
			actual = &price
		}

		_, pred, err := e.orch.step(ctx, stepInput{
			cycle:       cycle,
			mode:        models.ModeReplay,
			signals:     signals,
			previousID:  previousID,
			actualPrice: actual,
		})
		if err != nil {
			return st, e.fail(ctx, st, err)
		}
		previousID = pred.PredictionID

		if idx%e.statusEvery == 0 || idx == len(keys)-1 {
			k := key
			st.CurrentDate = &k
			st.CyclesCompleted = idx + 1
			st.ProgressPct = util.Round(float64(idx+1)/float64(len(keys))*100, 1)
			if err := e.refreshMetrics(ctx, st); err != nil {
				return st, e.fail(ctx, st, err)
			}
			if err := e.statuses.Save(ctx, st); err != nil {
				return st, e.fail(ctx, st, err)
			}
			if e.metrics != nil {
				e.metrics.RecordReplayProgress(st.ProgressPct)
			}
		}
	}

	if err := e.refreshMetrics(ctx, st); err != nil {
		return st, e.fail(ctx, st, err)
	}
	finished := e.now()
	st.Status = models.ReplayCompleted
	st.ProgressPct = 100
	st.CyclesCompleted = len(keys)
	st.FinishedAt = &finished
	if err := e.statuses.Save(ctx, st); err != nil {
		return st, fmt.Errorf("replay %s: %w", replayID, err)
	}
	if e.metrics != nil {
		e.metrics.RecordReplayProgress(100)
		e.metrics.RecordReplayFinished(models.ReplayCompleted)
	}

	e.lgr.Info("replay completed",
		logger.String("replay_id", replayID),
		logger.Int("steps", len(keys)),
		logger.Float64("mae", st.CurrentMAE),
		logger.Float64("directional_accuracy", st.CurrentDirectionalAccuracy))
	return st, nil
}

func (e *ReplayEngine) newStatus(id string, start, end time.Time) *models.ReplayStatus {
	return &models.ReplayStatus{
		ReplayID:   id,
		Status:     models.ReplayRunning,
		Start:      start,
		End:        end,
		DataSource: e.dataSource(),
		StartedAt:  e.now(),
	}
}

func (e *ReplayEngine) dataSource() string {
	names := []string{e.primary.Name()}
	for _, s := range e.secondary {
		names = append(names, s.Name())
	}
	return strings.Join(names, " + ")
}

// loadBuckets groups history by hour. Only the primary source opens a bucket;
// secondary signals join buckets that already exist. A point served by more
// than one secondary source (live feed and archive) is kept once.
func (e *ReplayEngine) loadBuckets(ctx context.Context, start, end time.Time) (map[string][]models.Signal, []string, error) {
	history, err := e.primary.FetchHistory(ctx, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s history: %w", e.primary.ID(), err)
	}

	buckets := make(map[string][]models.Signal)
	for _, s := range history {
		key := util.HourBucket(s.Timestamp)
		buckets[key] = append(buckets[key], s)
	}
	seen := make(map[string]struct{})
	for _, src := range e.secondary {
		extra, err := src.FetchHistory(ctx, start, end)
		if err != nil {
			e.lgr.Warn("secondary history unavailable",
				logger.String("source", src.ID()),
				logger.Error(err))
			continue
		}
		for _, s := range extra {
			if s.Source == e.primary.ID() {
				continue
			}
			key := util.HourBucket(s.Timestamp)
			if _, ok := buckets[key]; !ok {
				continue
			}
			point := s.Key() + "@" + s.Timestamp.UTC().Format(time.RFC3339)
			if _, dup := seen[point]; dup {
				continue
			}
			seen[point] = struct{}{}
			buckets[key] = append(buckets[key], s)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return buckets, keys, nil
}

func (e *ReplayEngine) refreshMetrics(ctx context.Context, st *models.ReplayStatus) error {
	m, err := e.orch.evaluator.ComputeMetrics(ctx, 0)
	if err != nil {
		return err
	}
	st.CurrentMAE = m.OverallMAE
	st.CurrentDirectionalAccuracy = m.DirectionalAccuracy
	return nil
}

// fail stamps the error onto the status and returns the wrapped cause.
func (e *ReplayEngine) fail(ctx context.Context, st *models.ReplayStatus, cause error) error {
	finished := e.now()
	st.Status = models.ReplayError
	st.Error = cause.Error()
	st.FinishedAt = &finished
	if err := e.statuses.Save(context.WithoutCancel(ctx), st); err != nil {
		e.lgr.Error("save replay error status", logger.String("replay_id", st.ReplayID), logger.Error(err))
	}
	if e.metrics != nil {
		e.metrics.RecordError("replay")
		e.metrics.RecordReplayFinished(models.ReplayError)
	}
	e.lgr.Error("replay failed", logger.String("replay_id", st.ReplayID), logger.Error(cause))
	return fmt.Errorf("replay %s: %w", st.ReplayID, cause)
}
