package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/domain/service"
	xhttp "ComputeOracle/pkg/http"
	"ComputeOracle/pkg/util"
)

// ErrMalformedResponse marks oracle output that does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed oracle response")

type predictionPayload struct {
	Predictions         []models.HorizonForecast    `json:"predictions"`
	ContributingFactors []models.ContributingFactor `json:"contributing_factors"`
	CausalExplanation   string                      `json:"causal_explanation"`
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		} else {
			text = text[3:]
		}
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func parsePrediction(ctx context.Context, text string) (*predictionPayload, error) {
	var p predictionPayload
	if err := json.Unmarshal([]byte(stripFences(text)), &p); err != nil {
		return nil, malformed("decode: %v", err)
	}
	if len(p.Predictions) == 0 {
		return nil, malformed("no forecasts")
	}
	for i := range p.Predictions {
		f := &p.Predictions[i]
		f.Horizon = strings.TrimSpace(f.Horizon)
		f.Direction = strings.ToLower(strings.TrimSpace(f.Direction))
		f.Confidence = util.Clamp01(f.Confidence)
		if err := xhttp.ValidateStruct(ctx, f); err != nil {
			return nil, malformed("forecast %d: %v", i, err)
		}
	}
	p.ContributingFactors = normalizeFactors(p.ContributingFactors)
	return &p, nil
}

func parseReasoning(text string) (*service.Reasoning, error) {
	var r service.Reasoning
	if err := json.Unmarshal([]byte(stripFences(text)), &r); err != nil {
		return nil, malformed("decode: %v", err)
	}
	if r.Predictions == nil {
		r.Predictions = []service.TargetReasoning{}
	}
	for i := range r.Predictions {
		t := &r.Predictions[i]
		t.Direction = strings.ToLower(strings.TrimSpace(t.Direction))
		switch t.Direction {
		case models.DirectionUp, models.DirectionDown, models.DirectionFlat:
		default:
			t.Direction = models.DirectionFlat
		}
		t.Confidence = util.Clamp01(t.Confidence)
		t.ContributingFactors = normalizeFactors(t.ContributingFactors)
	}
	return &r, nil
}

// normalizeFactors drops unnamed factors and maps unknown directions to neutral.
func normalizeFactors(in []models.ContributingFactor) []models.ContributingFactor {
	out := make([]models.ContributingFactor, 0, len(in))
	for _, f := range in {
		f.Factor = strings.TrimSpace(f.Factor)
		if f.Factor == "" {
			continue
		}
		f.Direction = strings.ToLower(strings.TrimSpace(f.Direction))
		switch f.Direction {
		case models.FactorBullish, models.FactorBearish, models.FactorNeutral:
		default:
			f.Direction = models.FactorNeutral
		}
		out = append(out, f)
	}
	return out
}
