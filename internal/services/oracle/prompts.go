package oracle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ComputeOracle/internal/domain/models"
)

const predictorSystem = "You are a quantitative pricing prediction engine. Be precise with numbers. Always respond with valid JSON only, no markdown fences or extra text."

const predictionPrompt = `You are a compute pricing prediction engine.

## Current Causal Graph Weights
Higher weight = stronger causal influence on pricing.
%s

## Current Signal Values
%s

## Target
Predict the spot price of %s in %s.
Current price: $%.4f/hr

## Instructions
Predict the price at 3 horizons: 1h, 4h, 24h.
For each horizon provide: predicted_price (USD), direction (up/down/flat), confidence (0.0-1.0).
Also list the top contributing factors and a brief causal explanation.

Lower confidence for longer horizons. Higher confidence when multiple causal factors agree.

Respond in this exact JSON format (no markdown fences, just raw JSON):
{
  "predictions": [
    {"horizon": "1h", "predicted_price": 1.05, "direction": "down", "confidence": 0.80},
    {"horizon": "4h", "predicted_price": 1.02, "direction": "down", "confidence": 0.65},
    {"horizon": "24h", "predicted_price": 1.10, "direction": "up", "confidence": 0.45}
  ],
  "contributing_factors": [
    {"factor": "electricity_demand_pjm", "contribution": 0.4, "direction": "bearish"},
    {"factor": "time_of_day", "contribution": 0.3, "direction": "bearish"}
  ],
  "causal_explanation": "Brief 1-2 sentence explanation of the causal chain."
}`

const reasonerSystem = "You are a quantitative analyst specializing in cloud computing cost prediction. Always respond with valid JSON only, no markdown fences or extra text."

const reasoningPrompt = `You are a causal reasoning engine for compute cost prediction.

You analyze real-world signals and determine how they causally influence cloud compute (GPU spot instance) pricing.

## Current Signals
%s

## Current Causal Graph (factor → target, weight)
Higher weight = stronger causal influence (0.0 to 1.0).
%s

## Your Task
Based on the current signals and causal relationships:

1. For each target (spot price), identify which factors are MOST relevant RIGHT NOW
2. Predict the price DIRECTION for each target: "up", "down", or "flat"
3. Provide a confidence score (0.0 to 1.0) for each prediction
4. Explain the causal reasoning in 1-2 sentences

## Key Causal Patterns to Consider
- Higher electricity demand → higher data center operating costs → higher spot prices
- Higher temperature → higher cooling costs → higher electricity demand → higher spot prices
- Night hours (UTC 04:00-12:00) → lower demand → lower spot prices
- Weekends → lower enterprise demand → lower spot prices
- us-east-1 generally has higher demand and prices than us-west-2

Respond in this exact JSON format (no markdown fences, just raw JSON):
{
  "predictions": [
    {
      "target": "spot_price_p3_2xlarge",
      "direction": "down",
      "confidence": 0.75,
      "contributing_factors": [
        {"factor": "electricity_demand_pjm", "contribution": 0.4, "direction": "bearish"},
        {"factor": "time_of_day", "contribution": 0.3, "direction": "bearish"}
      ]
    }
  ],
  "causal_explanation": "PJM electricity demand is declining as we enter evening hours, which historically correlates with lower us-east-1 spot pricing."
}`

// promptEdgeLimit caps the edges shown to the predictor.
const promptEdgeLimit = 15

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatEdges lists edges in the given order.
func formatEdges(edges []models.CausalEdge, withConfidence bool, empty string) string {
	if len(edges) == 0 {
		return empty
	}
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		line := fmt.Sprintf("- %s → %s: weight=%.2f, direction=%s", e.From, e.To, e.Weight, e.Direction)
		if withConfidence {
			line += fmt.Sprintf(", confidence=%.2f", e.Confidence)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// formatPredictorSignals appends time-of-day and day-of-week lines taken
// from at, so the same batch always renders the same prompt.
func formatPredictorSignals(signals []models.Signal, at time.Time) string {
	lines := make([]string, 0, len(signals)+2)
	for _, s := range signals {
		name := s.Name
		if name == "" {
			name = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s %s", name, formatValue(s.Value), s.Unit))
	}
	at = at.UTC()
	kind := "weekday"
	if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
		kind = "weekend"
	}
	lines = append(lines,
		fmt.Sprintf("- Time of day: %d:00 UTC", at.Hour()),
		fmt.Sprintf("- Day of week: %s (%s)", at.Weekday(), kind))
	return strings.Join(lines, "\n")
}

func formatReasonerSignals(signals []models.Signal) string {
	if len(signals) == 0 {
		return "No signals available."
	}
	lines := make([]string, 0, len(signals))
	for _, s := range signals {
		change := ""
		if s.ChangePct != nil && *s.ChangePct != 0 {
			change = fmt.Sprintf(" (%s%%)", formatValue(*s.ChangePct))
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s %s%s", s.Name, s.Source, formatValue(s.Value), s.Unit, change))
	}
	return strings.Join(lines, "\n")
}
