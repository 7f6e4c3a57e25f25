package models

import "time"

// Forecast directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// Factor directions.
const (
	FactorBullish = "bullish"
	FactorBearish = "bearish"
	FactorNeutral = "neutral"
)

// HorizonOneHour is the horizon every evaluation is scored against.
const HorizonOneHour = "1h"

type HorizonForecast struct {
	Horizon        string  `json:"horizon" validate:"required"`
	PredictedPrice float64 `json:"predicted_price" validate:"gte=0"`
	Direction      string  `json:"direction" validate:"oneof=up down flat"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type ContributingFactor struct {
	Factor       string  `json:"factor" validate:"required"`
	Contribution float64 `json:"contribution"`
	Direction    string  `json:"direction"`
}

type Prediction struct {
	PredictionID        string               `json:"prediction_id"`
	Cycle               int64                `json:"cycle"`
	Timestamp           time.Time            `json:"timestamp"`
	Target              string               `json:"target"`
	CurrentPrice        float64              `json:"current_price"`
	Predictions         []HorizonForecast    `json:"predictions"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
	CausalExplanation   string               `json:"causal_explanation"`
}

// Forecast returns the forecast for the given horizon.
func (p *Prediction) Forecast(horizon string) (HorizonForecast, bool) {
	for _, f := range p.Predictions {
		if f.Horizon == horizon {
			return f, true
		}
	}
	return HorizonForecast{}, false
}

// FirstPrice returns the first forecast price, or nil without forecasts.
func (p *Prediction) FirstPrice() *float64 {
	if len(p.Predictions) == 0 {
		return nil
	}
	v := p.Predictions[0].PredictedPrice
	return &v
}

type Evaluation struct {
	PredictionID        string               `json:"prediction_id"`
	Cycle               int64                `json:"cycle"`
	Timestamp           time.Time            `json:"timestamp"`
	Target              string               `json:"target"`
	CurrentPrice        float64              `json:"current_price"`
	PredictedPrice      float64              `json:"predicted_price"`
	ActualPrice         float64              `json:"actual_price"`
	AbsoluteError       float64              `json:"absolute_error"`
	PctError            float64              `json:"pct_error"`
	PredictedDirection  string               `json:"predicted_direction"`
	ActualDirection     string               `json:"actual_direction"`
	DirectionCorrect    bool                 `json:"direction_correct"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
}

// PredictionHistoryItem joins a prediction with its evaluation, if any.
type PredictionHistoryItem struct {
	PredictionID     string    `json:"prediction_id"`
	Cycle            int64     `json:"cycle"`
	Timestamp        time.Time `json:"timestamp"`
	PredictedPrice1h float64   `json:"predicted_price_1h"`
	ActualPrice1h    *float64  `json:"actual_price_1h"`
	Error1h          *float64  `json:"error_1h"`
	DirectionCorrect *bool     `json:"direction_correct"`
}
