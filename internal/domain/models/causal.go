package models

import (
	"sort"
	"time"
)

// Node types.
const (
	NodeTypeSignal  = "signal"
	NodeTypeDerived = "derived"
	NodeTypeTarget  = "target"
)

// Edge directions.
const (
	EdgePositive = "positive"
	EdgeNegative = "negative"
)

type CausalNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

type CausalEdge struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Weight      float64   `json:"weight"`
	Confidence  float64   `json:"confidence"`
	Direction   string    `json:"direction"`
	UpdateCount int       `json:"update_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// CausalGraph is the singleton graph document. Edges are keyed by EdgeKey.
type CausalGraph struct {
	Version     int                    `json:"version"`
	Nodes       []CausalNode           `json:"nodes"`
	Edges       map[string]*CausalEdge `json:"edges"`
	CreatedAt   time.Time              `json:"created_at"`
	LastUpdated time.Time              `json:"last_updated"`
}

// EdgeKey returns the unique key of the ordered pair (from, to).
func EdgeKey(from, to string) string {
	return from + "->" + to
}

// SortedEdgeKeys returns edge keys in ascending order.
func (g *CausalGraph) SortedEdgeKeys() []string {
	keys := make([]string, 0, len(g.Edges))
	for k := range g.Edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedEdges returns edge values in ascending key order.
func (g *CausalGraph) SortedEdges() []CausalEdge {
	out := make([]CausalEdge, 0, len(g.Edges))
	for _, k := range g.SortedEdgeKeys() {
		out = append(out, *g.Edges[k])
	}
	return out
}

// EdgesFrom returns copies of every edge leaving node id.
func (g *CausalGraph) EdgesFrom(id string) []CausalEdge {
	var out []CausalEdge
	for _, e := range g.SortedEdges() {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns copies of every edge pointing at node id.
func (g *CausalGraph) EdgesTo(id string) []CausalEdge {
	var out []CausalEdge
	for _, e := range g.SortedEdges() {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

type GraphMetadata struct {
	TotalNodes  int       `json:"total_nodes"`
	TotalEdges  int       `json:"total_edges"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int       `json:"version"`
}

// GraphView is the read shape of the graph served over HTTP.
type GraphView struct {
	Nodes    []CausalNode  `json:"nodes"`
	Edges    []CausalEdge  `json:"edges"`
	Metadata GraphMetadata `json:"metadata"`
}

type FactorRanking struct {
	ID               string    `json:"id"`
	CurrentWeight    float64   `json:"current_weight"`
	WeightHistory    []float64 `json:"weight_history"`
	ContributionRank int       `json:"contribution_rank"`
	Direction        string    `json:"direction"`
}
