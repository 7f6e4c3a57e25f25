package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

type SignalHistoryRequest struct {
	Source string `query:"source" json:"source" default:"aws_spot" validate:"required"`
	Name   string `query:"name" json:"name" default:"p3.2xlarge us-east-1a" validate:"required"`
	Hours  int    `query:"hours" json:"hours" default:"168" validate:"gte=1,lte=8760"`
}

type IngestRequest struct {
	Source string `query:"source" json:"source"`
}

type LearningLogRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=1000"`
}

type PredictionHistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type SchedulerRequest struct {
	Hours int `query:"hours" json:"hours" default:"48" validate:"gte=1,lte=720"`
}

type ReplayStartRequest struct {
	StartDate string `json:"start_date" default:"2025-11-01T00:00:00" validate:"required"`
	EndDate   string `json:"end_date" default:"2025-11-04T00:00:00" validate:"required"`
}

type ReplayStatusRequest struct {
	ReplayID string `param:"id" validate:"required"`
}

type CycleRunRequest struct {
	ActualPrice          *float64 `json:"actual_price" validate:"omitempty,gte=0"`
	PreviousPredictionID string   `json:"previous_prediction_id" validate:"required_with=ActualPrice"`
}
