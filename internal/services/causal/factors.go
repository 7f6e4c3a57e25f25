package causal

import (
	"strings"
	"time"

	"ComputeOracle/internal/domain/models"
)

// Initial values for every seeded edge.
const (
	SeedWeight     = 0.5
	SeedConfidence = 0.5
)

// Defaults for edges discovered after seeding.
const (
	AddedWeight     = 0.3
	AddedConfidence = 0.3
)

var SignalFactors = []models.CausalNode{
	{ID: "electricity_demand_pjm", Label: "PJM Electricity Demand", Type: models.NodeTypeSignal, Source: models.SourceEIAElectricity},
	{ID: "electricity_demand_ercot", Label: "ERCOT Electricity Demand", Type: models.NodeTypeSignal, Source: models.SourceEIAElectricity},
	{ID: "electricity_demand_ciso", Label: "CAISO Electricity Demand", Type: models.NodeTypeSignal, Source: models.SourceEIAElectricity},
	{ID: "temperature_us_east", Label: "Temperature (us-east-1 / Virginia)", Type: models.NodeTypeSignal, Source: models.SourceWeather},
	{ID: "temperature_us_west", Label: "Temperature (us-west-2 / Oregon)", Type: models.NodeTypeSignal, Source: models.SourceWeather},
	{ID: "time_of_day", Label: "Time of Day (UTC hour)", Type: models.NodeTypeDerived, Source: "system"},
	{ID: "day_of_week", Label: "Day of Week", Type: models.NodeTypeDerived, Source: "system"},
}

var TargetFactors = []models.CausalNode{
	{ID: "spot_price_p3_2xlarge", Label: "p3.2xlarge Spot Price", Type: models.NodeTypeTarget, Source: models.SourceAWSSpot},
	{ID: "spot_price_g4dn_xlarge", Label: "g4dn.xlarge Spot Price", Type: models.NodeTypeTarget, Source: models.SourceAWSSpot},
	{ID: "spot_price_g5_xlarge", Label: "g5.xlarge Spot Price", Type: models.NodeTypeTarget, Source: models.SourceAWSSpot},
}

var (
	temperatureNodes = []string{"temperature_us_east", "temperature_us_west"}
	demandNodes      = []string{"electricity_demand_pjm", "electricity_demand_ercot", "electricity_demand_ciso"}
)

// TargetNodeID maps an instance type to its target node id.
func TargetNodeID(instance string) string {
	return "spot_price_" + strings.NewReplacer(".", "_", "-", "_").Replace(instance)
}

// Seed builds the initial graph: every signal factor points at every
// target, and temperatures point at demand.
func Seed(now time.Time) *models.CausalGraph {
	nodes := make([]models.CausalNode, 0, len(SignalFactors)+len(TargetFactors))
	nodes = append(nodes, SignalFactors...)
	nodes = append(nodes, TargetFactors...)

	edges := make(map[string]*models.CausalEdge)
	add := func(from, to string) {
		edges[models.EdgeKey(from, to)] = &models.CausalEdge{
			From:        from,
			To:          to,
			Weight:      SeedWeight,
			Confidence:  SeedConfidence,
			Direction:   models.EdgePositive,
			LastUpdated: now,
		}
	}
	for _, s := range SignalFactors {
		for _, t := range TargetFactors {
			add(s.ID, t.ID)
		}
	}
	for _, temp := range temperatureNodes {
		for _, demand := range demandNodes {
			add(temp, demand)
		}
	}

	return &models.CausalGraph{
		Version:     0,
		Nodes:       nodes,
		Edges:       edges,
		CreatedAt:   now,
		LastUpdated: now,
	}
}
