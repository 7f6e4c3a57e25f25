package learning

import (
	"context"
	"fmt"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/services/causal"
	"ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/util"
)

// Graph is the subset of the graph store the learner mutates.
type Graph interface {
	Get(ctx context.Context) (*models.CausalGraph, error)
	UpdateEdge(ctx context.Context, from, to string, weight float64, opts ...causal.EdgeOption) (*models.CausalGraph, error)
	PruneEdge(ctx context.Context, from, to string) (*models.CausalGraph, error)
	IncrementVersion(ctx context.Context) (int, error)
}

// Learner recalibrates edge weights from evaluated predictions.
type Learner struct {
	graph     Graph
	log       domrepo.LearningLog
	locker    domrepo.Locker
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	lgr       *logger.Logger
	now       func() time.Time
}

type Option func(*Learner)

func WithLocker(l domrepo.Locker) Option            { return func(x *Learner) { x.locker = l } }
func WithPublisher(p domrepo.EventPublisher) Option { return func(x *Learner) { x.publisher = p } }
func WithMetrics(m domrepo.Metrics) Option          { return func(x *Learner) { x.metrics = m } }
func WithLogger(l *logger.Logger) Option            { return func(x *Learner) { x.lgr = l } }
func WithClock(now func() time.Time) Option         { return func(x *Learner) { x.now = now } }

func NewLearner(graph Graph, log domrepo.LearningLog, opts ...Option) *Learner {
	l := &Learner{
		graph: graph,
		log:   log,
		lgr:   logger.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Learn applies one learning pass for eval. The graph version is bumped once
// per call, even when no edge was touched.
func (l *Learner) Learn(ctx context.Context, eval *models.Evaluation, cycle int64) (*models.LearningResult, error) {
	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("learn: %w", err)
		}
		defer unlock()
	}

	g, err := l.graph.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("learn: load graph: %w", err)
	}

	alpha := AdaptiveAlpha(cycle)
	mae := util.Round(eval.AbsoluteError, 6)
	events := make([]models.LearningEvent, 0)
	seen := make(map[string]bool, len(eval.ContributingFactors))

	for _, f := range eval.ContributingFactors {
		if seen[f.Factor] {
			continue
		}
		seen[f.Factor] = true

		direction := f.Direction
		if direction == "" {
			direction = models.FactorNeutral
		}
		factorCorrect := factorWasCorrect(direction, eval.ActualDirection)

		for _, edge := range g.EdgesFrom(f.Factor) {
			old := edge.Weight
			var next float64
			var desc string
			switch {
			case eval.DirectionCorrect:
				next = ExponentialWeightUpdate(old, true, alpha)
				desc = fmt.Sprintf("Strengthened %s → %s: %.3f → %.3f (prediction correct, factor was %s)",
					f.Factor, edge.To, old, next, direction)
			case factorCorrect:
				next = ExponentialWeightUpdate(old, true, alpha*SmallStrengthenFactor)
				desc = fmt.Sprintf("Slightly strengthened %s → %s: %.3f → %.3f (factor was correct but overall prediction missed)",
					f.Factor, edge.To, old, next)
			default:
				next = ExponentialWeightUpdate(old, false, alpha)
				desc = fmt.Sprintf("Weakened %s → %s: %.3f → %.3f (prediction incorrect, factor was %s)",
					f.Factor, edge.To, old, next, direction)
			}

			eventType := models.EventEdgeWeightUpdate
			if next < PruneThreshold {
				eventType = models.EventEdgePruned
				desc = fmt.Sprintf("Pruned %s → %s (weight fell to %.3f after incorrect predictions)",
					f.Factor, edge.To, next)
				if _, err := l.graph.PruneEdge(ctx, f.Factor, edge.To); err != nil {
					return nil, fmt.Errorf("learn: prune %s: %w", models.EdgeKey(f.Factor, edge.To), err)
				}
			} else if _, err := l.graph.UpdateEdge(ctx, f.Factor, edge.To, next); err != nil {
				return nil, fmt.Errorf("learn: update %s: %w", models.EdgeKey(f.Factor, edge.To), err)
			}

			events = append(events, models.LearningEvent{
				Cycle:       cycle,
				Timestamp:   l.now(),
				Type:        eventType,
				Description: desc,
				MAEBefore:   mae,
				MAEAfter:    mae,
				OldWeight:   util.Round(old, 4),
				NewWeight:   util.Round(next, 4),
				Factor:      f.Factor,
				Target:      edge.To,
			})
		}
	}

	version, err := l.graph.IncrementVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("learn: increment version: %w", err)
	}

	if err := l.log.Append(ctx, events...); err != nil {
		return nil, fmt.Errorf("learn: %w", err)
	}

	if l.publisher != nil && len(events) > 0 {
		if err := l.publisher.PublishLearningEvents(ctx, events); err != nil {
			l.lgr.Warn("publish learning events failed",
				logger.Int64("cycle", cycle),
				logger.Error(err))
		}
	}
	if l.metrics != nil {
		for _, ev := range events {
			l.metrics.RecordLearningEvent(ev.Type)
		}
		l.metrics.RecordGraphVersion(version)
	}

	l.lgr.Debug("learning pass complete",
		logger.Int64("cycle", cycle),
		logger.Int("events", len(events)),
		logger.Int("graph_version", version),
		logger.Float64("alpha", alpha))

	return &models.LearningResult{
		Cycle:            cycle,
		Events:           events,
		GraphVersion:     version,
		DirectionCorrect: eval.DirectionCorrect,
	}, nil
}

func factorWasCorrect(factorDirection, actualDirection string) bool {
	switch factorDirection {
	case models.FactorBearish:
		return actualDirection == models.DirectionDown
	case models.FactorBullish:
		return actualDirection == models.DirectionUp
	case models.FactorNeutral:
		return actualDirection == models.DirectionFlat
	}
	return false
}
