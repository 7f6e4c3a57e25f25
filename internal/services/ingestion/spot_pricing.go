package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/service/ratelimit"
	xhttp "ComputeOracle/pkg/http"
	"ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/util"
)

const (
	DefaultCatalogURL  = "https://instances.vantage.sh/aws/ec2/instances.json"
	DefaultHistorySeed = 42
	spotUnit           = "USD/hr"
)

// TargetInstances are the GPU instance types tracked, in emission order.
var TargetInstances = []string{"p3.2xlarge", "g4dn.xlarge", "g5.xlarge"}

type region struct {
	name  string
	zones []string
}

var regions = []region{
	{name: "us-east-1", zones: []string{"us-east-1a", "us-east-1b"}},
	{name: "us-west-2", zones: []string{"us-west-2a"}},
}

// onDemand is the on-demand USD/hr baseline used for synthetic history.
var onDemand = map[string]float64{
	"p3.2xlarge":  3.06,
	"g4dn.xlarge": 0.526,
	"g5.xlarge":   1.006,
}

// fallbackPrices apply when the public catalogue is unreachable or empty.
var fallbackPrices = map[string]map[string]float64{
	"p3.2xlarge":  {"us-east-1a": 1.07, "us-east-1b": 1.12, "us-west-2a": 0.98},
	"g4dn.xlarge": {"us-east-1a": 0.19, "us-east-1b": 0.20, "us-west-2a": 0.17},
	"g5.xlarge":   {"us-east-1a": 0.37, "us-east-1b": 0.39, "us-west-2a": 0.35},
}

// SpotPricingSource reads GPU spot prices from the public instance
// catalogue. History is synthetic.
type SpotPricingSource struct {
	url     string
	seed    int64
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	lgr     *logger.Logger
	now     func() time.Time
}

type SpotOption func(*SpotPricingSource)

func WithCatalogURL(u string) SpotOption {
	return func(s *SpotPricingSource) {
		if u != "" {
			s.url = u
		}
	}
}
func WithHistorySeed(seed int64) SpotOption {
	return func(s *SpotPricingSource) { s.seed = seed }
}

func WithSpotHTTPClient(c *xhttp.Client) SpotOption {
	return func(s *SpotPricingSource) { s.http = c }
}

func WithSpotLimiter(l *ratelimit.Limiter) SpotOption {
	return func(s *SpotPricingSource) { s.limiter = l }
}

func WithSpotLogger(l *logger.Logger) SpotOption {
	return func(s *SpotPricingSource) { s.lgr = l }
}

func WithSpotClock(now func() time.Time) SpotOption {
	return func(s *SpotPricingSource) { s.now = now }
}

func NewSpotPricingSource(opts ...SpotOption) *SpotPricingSource {
	s := &SpotPricingSource{
		url:  DefaultCatalogURL,
		seed: DefaultHistorySeed,
		lgr:  logger.Nop(),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(1, 1)
	}
	return s
}

func (s *SpotPricingSource) ID() string   { return models.SourceAWSSpot }
func (s *SpotPricingSource) Name() string { return "AWS Spot Pricing" }

type catalogInstance struct {
	InstanceType string                                           `json:"instance_type"`
	Pricing      map[string]map[string]map[string]json.RawMessage `json:"pricing"`
}

// FetchLatest returns one signal per tracked instance and zone. Any failure
// of the catalogue falls back to the fixed price table.
func (s *SpotPricingSource) FetchLatest(ctx context.Context) ([]models.Signal, error) {
	now := s.now()
	out, err := s.fetchCatalog(ctx, now)
	if err != nil {
		s.lgr.Warn("spot catalogue unavailable, using fallback prices",
			logger.String("url", s.url),
			logger.Error(err))
	}
	if len(out) == 0 {
		out = fallbackSignals(now)
	}
	return out, nil
}

func (s *SpotPricingSource) fetchCatalog(ctx context.Context, now time.Time) ([]models.Signal, error) {
	if err := s.limiter.Wait(ctx, s.ID()); err != nil {
		return nil, err
	}
	var catalog []catalogInstance
	if err := s.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.url,
	}, &catalog); err != nil {
		return nil, fmt.Errorf("fetch catalogue: %w", err)
	}

	byType := make(map[string]catalogInstance, len(TargetInstances))
	for _, inst := range catalog {
		if _, ok := onDemand[inst.InstanceType]; ok {
			byType[inst.InstanceType] = inst
		}
	}

	var out []models.Signal
	for _, instance := range TargetInstances {
		inst, ok := byType[instance]
		if !ok {
			continue
		}
		for _, r := range regions {
			price, ok := positiveNumber(inst.Pricing[r.name]["linux"]["spot"])
			if !ok {
				continue
			}
			for _, zone := range r.zones {
				out = append(out, spotSignal(instance, zone, price, now))
			}
		}
	}
	return out, nil
}

// positiveNumber accepts a JSON string or number greater than zero.
func positiveNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, f > 0
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return f, f > 0
}

func spotSignal(instance, zone string, price float64, at time.Time) models.Signal {
	return models.Signal{
		Source:       models.SourceAWSSpot,
		Name:         instance + " " + zone,
		Value:        price,
		Unit:         spotUnit,
		Timestamp:    at,
		InstanceType: instance,
		AZ:           zone,
	}
}

func fallbackSignals(at time.Time) []models.Signal {
	out := make([]models.Signal, 0, 9)
	for _, instance := range TargetInstances {
		for _, r := range regions {
			for _, zone := range r.zones {
				out = append(out, spotSignal(instance, zone, fallbackPrices[instance][zone], at))
			}
		}
	}
	return out
}

// FetchHistory generates hourly prices in [start, end). The same range and
// seed always produce the same series.
func (s *SpotPricingSource) FetchHistory(ctx context.Context, start, end time.Time) ([]models.Signal, error) {
	rng := rand.New(rand.NewSource(s.seed))
	start, end = start.UTC(), end.UTC()

	var out []models.Signal
	for at := start; at.Before(end); at = at.Add(time.Hour) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hour := at.Hour()
		weekend := at.Weekday() == time.Saturday || at.Weekday() == time.Sunday
		for _, instance := range TargetInstances {
			for _, r := range regions {
				for _, zone := range r.zones {
					ratio := 0.35 + rng.NormFloat64()*0.05
					switch {
					case hour >= 4 && hour <= 12:
						ratio -= 0.05
					case hour >= 13 && hour <= 21:
						ratio += 0.05
					}
					if weekend {
						ratio -= 0.03
					}
					if r.name == "us-east-1" {
						ratio += 0.02
					}
					ratio += rng.NormFloat64() * 0.02
					ratio = math.Max(0.20, math.Min(0.80, ratio))

					out = append(out, spotSignal(instance, zone, util.Round(onDemand[instance]*ratio, 4), at))
				}
			}
		}
	}
	return out, nil
}
