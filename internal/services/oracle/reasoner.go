package oracle

import (
	"context"
	"fmt"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/services/causal"
)

// Reasoner asks the reasoning model for a per-target outlook over the whole graph.
type Reasoner struct {
	client Completer
	model  string
}

func NewReasoner(client Completer, model string) *Reasoner {
	if model == "" {
		model = DefaultReasonerModel
	}
	return &Reasoner{client: client, model: model}
}

var _ service.Reasoner = (*Reasoner)(nil)

func (r *Reasoner) Reason(ctx context.Context, signals []models.Signal, edges []models.CausalEdge) (*service.Reasoning, error) {
	prompt := fmt.Sprintf(reasoningPrompt,
		formatReasonerSignals(signals),
		formatEdges(causal.TopByWeight(edges, len(edges)), true, "No edges yet."))

	text, err := r.client.Complete(ctx, Completion{
		Model:       r.model,
		System:      reasonerSystem,
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}
	out, err := parseReasoning(text)
	if err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}
	return out, nil
}
