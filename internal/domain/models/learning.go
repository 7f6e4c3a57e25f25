package models

import "time"

// Learning event types.
const (
	EventEdgeWeightUpdate = "edge_weight_update"
	EventEdgePruned       = "edge_pruned"
)

type LearningEvent struct {
	Cycle       int64     `json:"cycle"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	MAEBefore   float64   `json:"mae_before"`
	MAEAfter    float64   `json:"mae_after"`
	OldWeight   float64   `json:"old_weight"`
	NewWeight   float64   `json:"new_weight"`
	Factor      string    `json:"factor"`
	Target      string    `json:"target,omitempty"`
}

// LearningResult summarises one learning pass.
type LearningResult struct {
	Cycle            int64           `json:"cycle"`
	Events           []LearningEvent `json:"events"`
	GraphVersion     int             `json:"graph_version"`
	DirectionCorrect bool            `json:"direction_correct"`
}

// AccuracyMetrics are the aggregate evaluation series.
type AccuracyMetrics struct {
	TotalCycles                int       `json:"total_cycles"`
	OverallMAE                 float64   `json:"overall_mae"`
	DirectionalAccuracy        float64   `json:"directional_accuracy"`
	MAEHistory                 []float64 `json:"mae_history"`
	DirectionalAccuracyHistory []float64 `json:"directional_accuracy_history"`
}

type LastImprovement struct {
	Cycle    int64   `json:"cycle"`
	Change   string  `json:"change"`
	MAEDelta float64 `json:"mae_delta"`
}

type LearningMetrics struct {
	AccuracyMetrics
	GraphVersions   int              `json:"graph_versions"`
	LastImprovement *LastImprovement `json:"last_improvement"`
}
