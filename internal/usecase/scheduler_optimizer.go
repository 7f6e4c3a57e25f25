package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/pkg/util"
)

const (
	schedulerPredictions = 51
	schedulerScanned     = 10
	schedulerEvaluations = 101
	schedulerTopWindows  = 5

	noPredictionsRecommendation = "No predictions available yet. Run prediction cycles first."
	defaultRecommendation       = "Run workloads during predicted price dips for optimal savings."
)

// SchedulerOptimizer turns forecast history into cheap compute windows and
// tracks the savings realised by correct dip calls.
type SchedulerOptimizer struct {
	predictions domrepo.PredictionRepository
	evaluations domrepo.EvaluationRepository
	savings     domrepo.SavingsRepository
}

func NewSchedulerOptimizer(
	predictions domrepo.PredictionRepository,
	evaluations domrepo.EvaluationRepository,
	savings domrepo.SavingsRepository,
) *SchedulerOptimizer {
	return &SchedulerOptimizer{predictions: predictions, evaluations: evaluations, savings: savings}
}

// OptimalWindows reads recent predictions and evaluations. hoursAhead is
// reported back to callers only; it does not bound the scan.
func (s *SchedulerOptimizer) OptimalWindows(ctx context.Context, hoursAhead int) (*models.SchedulerResult, error) {
	preds, err := s.predictions.Recent(ctx, schedulerPredictions)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if len(preds) == 0 {
		return &models.SchedulerResult{
			CurrentPrice:   DefaultCurrentPrice,
			Windows:        []models.PriceWindow{},
			Recommendation: noPredictionsRecommendation,
		}, nil
	}

	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Timestamp.Before(preds[j].Timestamp) })
	current := preds[len(preds)-1].CurrentPrice

	windows := candidateWindows(preds, current)

	evals, err := s.evaluations.Recent(ctx, schedulerEvaluations)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	savings := cumulativeSavings(evals)
	if err := s.savings.Save(ctx, &savings); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	rec := defaultRecommendation
	if len(windows) > 0 {
		best := windows[0]
		rec = fmt.Sprintf("Best window: $%.3f/hr (%.1f%% savings, %.0f%% confidence)",
			best.PredictedAvgPrice, best.SavingsPct, best.Confidence*100)
	}

	return &models.SchedulerResult{
		CurrentPrice:      current,
		Windows:           windows,
		Recommendation:    rec,
		CumulativeSavings: savings,
	}, nil
}

// candidateWindows keeps confident down forecasts from the newest
// predictions that undercut the current price, best first.
func candidateWindows(preds []models.Prediction, current float64) []models.PriceWindow {
	if len(preds) > schedulerScanned {
		preds = preds[len(preds)-schedulerScanned:]
	}
	windows := make([]models.PriceWindow, 0)
	if current == 0 {
		return windows
	}
	for _, p := range preds {
		for _, f := range p.Predictions {
			if f.Direction != models.DirectionDown || f.Confidence <= 0.5 {
				continue
			}
			pct := util.Round((current-f.PredictedPrice)/current*100, 1)
			if pct <= 0 {
				continue
			}
			end := p.Timestamp
			if d, err := time.ParseDuration(f.Horizon); err == nil {
				end = end.Add(d)
			}
			windows = append(windows, models.PriceWindow{
				Start:             p.Timestamp,
				End:               end,
				PredictedAvgPrice: f.PredictedPrice,
				SavingsPct:        pct,
				Confidence:        f.Confidence,
			})
		}
	}
	sort.SliceStable(windows, func(i, j int) bool { return windows[i].SavingsPct > windows[j].SavingsPct })
	if len(windows) > schedulerTopWindows {
		windows = windows[:schedulerTopWindows]
	}
	return windows
}

// cumulativeSavings counts correct calls that predicted a dip. The naive
// baseline only accumulates over correct calls.
func cumulativeSavings(evals []models.Evaluation) models.CumulativeSavings {
	var total, naive float64
	var workloads int
	for _, ev := range evals {
		if !ev.DirectionCorrect {
			continue
		}
		base := ev.CurrentPrice
		if ev.PredictedPrice < base {
			total += math.Abs(base - ev.ActualPrice)
			workloads++
		}
		naive += base
	}
	var vsNaive float64
	if naive > 0 {
		vsNaive = util.Round(total/naive*100, 1)
	}
	return models.CumulativeSavings{
		TotalUSD:           util.Round(total, 2),
		VsNaivePct:         vsNaive,
		WorkloadsOptimized: workloads,
	}
}
