package service

import (
	"context"
	"time"

	"ComputeOracle/internal/domain/models"
)

// PredictionRequest is the context handed to the prediction oracle.
type PredictionRequest struct {
	Signals        []models.Signal
	Edges          []models.CausalEdge
	TargetInstance string
	TargetZone     string
	CurrentPrice   float64
	Cycle          int64
}

// PredictionOracle turns signals and graph edges into a forecast.
type PredictionOracle interface {
	Predict(ctx context.Context, req PredictionRequest) (*models.Prediction, error)
}

type TargetReasoning struct {
	Target              string                      `json:"target"`
	Direction           string                      `json:"direction"`
	Confidence          float64                     `json:"confidence"`
	ContributingFactors []models.ContributingFactor `json:"contributing_factors"`
}

type Reasoning struct {
	Predictions       []TargetReasoning `json:"predictions"`
	CausalExplanation string            `json:"causal_explanation"`
}

// Reasoner produces graph-wide reasoning over all targets.
type Reasoner interface {
	Reason(ctx context.Context, signals []models.Signal, edges []models.CausalEdge) (*Reasoning, error)
}

// SignalSource is one ingestion adapter.
type SignalSource interface {
	ID() string
	Name() string
	FetchLatest(ctx context.Context) ([]models.Signal, error)
	FetchHistory(ctx context.Context, start, end time.Time) ([]models.Signal, error)
}
