package models

import "time"

type PriceWindow struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	PredictedAvgPrice float64   `json:"predicted_avg_price"`
	SavingsPct        float64   `json:"savings_pct"`
	Confidence        float64   `json:"confidence"`
}

type CumulativeSavings struct {
	TotalUSD           float64 `json:"total_usd"`
	VsNaivePct         float64 `json:"vs_naive_pct"`
	WorkloadsOptimized int     `json:"workloads_optimized"`
}

type SchedulerResult struct {
	CurrentPrice      float64           `json:"current_price"`
	Windows           []PriceWindow     `json:"windows"`
	Recommendation    string            `json:"recommendation"`
	CumulativeSavings CumulativeSavings `json:"cumulative_savings"`
}
