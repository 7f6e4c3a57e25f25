package causal

import (
	"context"
	"sort"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/pkg/util"
)

// GraphStore owns every read and write of the causal graph. Each mutation is
// a single check-and-set against the stored document.
type GraphStore struct {
	repo domrepo.GraphRepository
	now  func() time.Time
}

type GraphOption func(*GraphStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) GraphOption {
	return func(s *GraphStore) { s.now = now }
}

func NewGraphStore(repo domrepo.GraphRepository, opts ...GraphOption) *GraphStore {
	s := &GraphStore{repo: repo, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current graph, persisting the seed on first access.
func (s *GraphStore) Get(ctx context.Context) (*models.CausalGraph, error) {
	g, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if g != nil {
		return g, nil
	}
	return s.mutate(ctx, func(*models.CausalGraph) {})
}

type edgeUpdate struct {
	confidence *float64
	direction  *string
}

type EdgeOption func(*edgeUpdate)

func WithConfidence(c float64) EdgeOption {
	return func(u *edgeUpdate) { u.confidence = &c }
}

func WithDirection(d string) EdgeOption {
	return func(u *edgeUpdate) { u.direction = &d }
}

// UpdateEdge sets the weight (and optionally confidence and direction) of an
// existing edge. A missing edge is a no-op.
func (s *GraphStore) UpdateEdge(ctx context.Context, from, to string, weight float64, opts ...EdgeOption) (*models.CausalGraph, error) {
	var u edgeUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return s.mutate(ctx, func(g *models.CausalGraph) {
		e, ok := g.Edges[models.EdgeKey(from, to)]
		if !ok {
			return
		}
		now := s.now()
		e.Weight = util.Clamp01(weight)
		if u.confidence != nil {
			e.Confidence = util.Clamp01(*u.confidence)
		}
		if u.direction != nil {
			e.Direction = *u.direction
		}
		e.UpdateCount++
		e.LastUpdated = now
		g.LastUpdated = now
	})
}

// AddEdge inserts an edge with fixed confidence if the pair is not present.
func (s *GraphStore) AddEdge(ctx context.Context, from, to string, weight float64, direction string) (*models.CausalGraph, error) {
	if direction == "" {
		direction = models.EdgePositive
	}
	return s.mutate(ctx, func(g *models.CausalGraph) {
		key := models.EdgeKey(from, to)
		if _, ok := g.Edges[key]; ok {
			return
		}
		now := s.now()
		g.Edges[key] = &models.CausalEdge{
			From:        from,
			To:          to,
			Weight:      util.Clamp01(weight),
			Confidence:  AddedConfidence,
			Direction:   direction,
			LastUpdated: now,
		}
		g.LastUpdated = now
	})
}

// PruneEdge removes the edge if present.
func (s *GraphStore) PruneEdge(ctx context.Context, from, to string) (*models.CausalGraph, error) {
	return s.mutate(ctx, func(g *models.CausalGraph) {
		key := models.EdgeKey(from, to)
		if _, ok := g.Edges[key]; !ok {
			return
		}
		delete(g.Edges, key)
		g.LastUpdated = s.now()
	})
}

// IncrementVersion bumps the version and returns the new value.
func (s *GraphStore) IncrementVersion(ctx context.Context) (int, error) {
	g, err := s.mutate(ctx, func(g *models.CausalGraph) {
		g.Version++
		g.LastUpdated = s.now()
	})
	if err != nil {
		return 0, err
	}
	return g.Version, nil
}

// EdgesForTarget returns every edge pointing at target in key order.
func (s *GraphStore) EdgesForTarget(ctx context.Context, target string) ([]models.CausalEdge, error) {
	g, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return g.EdgesTo(target), nil
}

// TopFactors returns the n heaviest edges into target. Ties keep key order.
func (s *GraphStore) TopFactors(ctx context.Context, target string, n int) ([]models.CausalEdge, error) {
	edges, err := s.EdgesForTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	return TopByWeight(edges, n), nil
}

// TopByWeight stable-sorts edges by weight descending and keeps n.
func TopByWeight(edges []models.CausalEdge, n int) []models.CausalEdge {
	out := append([]models.CausalEdge(nil), edges...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FactorRankings ranks source nodes by the average weight of their edges.
func (s *GraphStore) FactorRankings(ctx context.Context) ([]models.FactorRanking, error) {
	g, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return RankFactors(g), nil
}

func RankFactors(g *models.CausalGraph) []models.FactorRanking {
	var order []string
	weights := map[string][]float64{}
	directions := map[string]string{}
	for _, e := range g.SortedEdges() {
		if _, ok := weights[e.From]; !ok {
			order = append(order, e.From)
			directions[e.From] = e.Direction
		}
		weights[e.From] = append(weights[e.From], e.Weight)
	}

	avg := make(map[string]float64, len(order))
	for _, id := range order {
		var sum float64
		for _, w := range weights[id] {
			sum += w
		}
		avg[id] = sum / float64(len(weights[id]))
	}
	sort.SliceStable(order, func(i, j int) bool { return avg[order[i]] > avg[order[j]] })

	out := make([]models.FactorRanking, 0, len(order))
	for i, id := range order {
		w := util.Round(avg[id], 4)
		out = append(out, models.FactorRanking{
			ID:               id,
			CurrentWeight:    w,
			WeightHistory:    []float64{w},
			ContributionRank: i + 1,
			Direction:        directions[id],
		})
	}
	return out
}

// View returns the graph in its HTTP shape.
func (s *GraphStore) View(ctx context.Context) (*models.GraphView, error) {
	g, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	edges := g.SortedEdges()
	return &models.GraphView{
		Nodes: g.Nodes,
		Edges: edges,
		Metadata: models.GraphMetadata{
			TotalNodes:  len(g.Nodes),
			TotalEdges:  len(edges),
			LastUpdated: g.LastUpdated,
			Version:     g.Version,
		},
	}, nil
}

// mutate seeds a missing graph and applies fn. The result is always written
// back so a fresh seed persists even when fn changes nothing.
func (s *GraphStore) mutate(ctx context.Context, fn func(g *models.CausalGraph)) (*models.CausalGraph, error) {
	return s.repo.Mutate(ctx, func(g *models.CausalGraph) (*models.CausalGraph, error) {
		if g == nil {
			g = Seed(s.now())
		}
		fn(g)
		return g, nil
	})
}
