package models

import "time"

// Cycle modes.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

type EvaluationSummary struct {
	PreviousPredictionID string  `json:"previous_prediction_id"`
	AbsoluteError        float64 `json:"absolute_error"`
	DirectionCorrect     bool    `json:"direction_correct"`
}

type LearningSummary struct {
	EventsCount      int  `json:"events_count"`
	GraphVersion     int  `json:"graph_version"`
	DirectionCorrect bool `json:"direction_correct"`
}

// CycleRecord is written once per completed cycle.
type CycleRecord struct {
	Cycle            int64              `json:"cycle"`
	Mode             string             `json:"mode"`
	Timestamp        time.Time          `json:"timestamp"`
	SignalCount      int                `json:"signal_count"`
	PredictionID     string             `json:"prediction_id"`
	PredictedPrice1h *float64           `json:"predicted_price_1h"`
	Evaluation       *EvaluationSummary `json:"evaluation,omitempty"`
	Learning         *LearningSummary   `json:"learning,omitempty"`
}

// Replay statuses.
const (
	ReplayRunning   = "running"
	ReplayCompleted = "completed"
	ReplayError     = "error"
	ReplayNotFound  = "not_found"
	ReplayStarted   = "started"
)

type ReplayStatus struct {
	ReplayID                   string     `json:"replay_id"`
	Status                     string     `json:"status"`
	ProgressPct                float64    `json:"progress_pct"`
	CurrentDate                *string    `json:"current_date"`
	CyclesCompleted            int        `json:"cycles_completed"`
	TotalSteps                 int        `json:"total_steps"`
	CurrentMAE                 float64    `json:"current_mae"`
	CurrentDirectionalAccuracy float64    `json:"current_directional_accuracy"`
	Start                      time.Time  `json:"start"`
	End                        time.Time  `json:"end"`
	DataSource                 string     `json:"data_source,omitempty"`
	Error                      string     `json:"error,omitempty"`
	StartedAt                  time.Time  `json:"started_at"`
	FinishedAt                 *time.Time `json:"finished_at,omitempty"`
}

// IsTerminal reports whether the replay has stopped.
func (s *ReplayStatus) IsTerminal() bool {
	return s.Status == ReplayCompleted || s.Status == ReplayError
}

type ReplayStartResult struct {
	ReplayID        string `json:"replay_id"`
	Status          string `json:"status"`
	EstimatedCycles int    `json:"estimated_cycles"`
}
