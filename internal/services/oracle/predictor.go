package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/services/causal"

	"github.com/google/uuid"
)

const (
	DefaultPredictorModel = "Qwen/Qwen3-30B-A3B-Instruct-2507"
	DefaultReasonerModel  = "deepseek-ai/DeepSeek-R1-0528"
)

// Completer is the transport the oracles run on.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// Predictor asks the model for a multi-horizon price forecast.
type Predictor struct {
	client Completer
	model  string
	now    func() time.Time
}

type PredictorOption func(*Predictor)

func WithPredictorModel(m string) PredictorOption {
	return func(p *Predictor) {
		if m != "" {
			p.model = m
		}
	}
}

func WithPredictorClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) { p.now = now }
}

func NewPredictor(client Completer, opts ...PredictorOption) *Predictor {
	p := &Predictor{
		client: client,
		model:  DefaultPredictorModel,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ service.PredictionOracle = (*Predictor)(nil)

// Predict renders the prompt, calls the model and returns an unsaved
// prediction record.
func (p *Predictor) Predict(ctx context.Context, req service.PredictionRequest) (*models.Prediction, error) {
	at, ok := models.LatestTimestamp(req.Signals)
	if !ok {
		at = p.now()
	}
	edges := causal.TopByWeight(req.Edges, promptEdgeLimit)
	prompt := fmt.Sprintf(predictionPrompt,
		formatEdges(edges, false, "No edges."),
		formatPredictorSignals(req.Signals, at),
		req.TargetInstance, req.TargetZone, req.CurrentPrice)

	text, err := p.client.Complete(ctx, Completion{
		Model:       p.model,
		System:      predictorSystem,
		Prompt:      prompt,
		Temperature: 0.2,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	payload, err := parsePrediction(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	return &models.Prediction{
		PredictionID:        NewPredictionID(),
		Cycle:               req.Cycle,
		Timestamp:           p.now(),
		Target:              req.TargetInstance + " " + req.TargetZone,
		CurrentPrice:        req.CurrentPrice,
		Predictions:         payload.Predictions,
		ContributingFactors: payload.ContributingFactors,
		CausalExplanation:   payload.CausalExplanation,
	}, nil
}

// NewPredictionID returns "pred_" plus eight hex characters.
func NewPredictionID() string {
	return "pred_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
