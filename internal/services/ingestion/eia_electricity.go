package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ComputeOracle/internal/domain/models"
	"ComputeOracle/internal/service/ratelimit"
	xhttp "ComputeOracle/pkg/http"
	"ComputeOracle/pkg/logger"
)

const (
	DefaultEIABaseURL = "https://api.eia.gov/v2"
	eiaRegionDataPath = "/electricity/rto/region-data/data/"
	eiaPeriodLayout   = "2006-01-02T15"
	eiaPageSize       = 100
	eiaMaxPages       = 50
	demandUnit        = "MWh"
)

// ErrEIAKeyMissing is returned when no EIA API key is configured.
var ErrEIAKeyMissing = errors.New("eia api key not configured")

// Respondents are the balancing authorities read, in emission order. Each
// sits next to a tracked AWS region.
var Respondents = []string{"PJM", "ERCO", "CISO"}

// EIAElectricitySource reads hourly electricity demand per balancing
// authority from the EIA v2 API.
type EIAElectricitySource struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	lgr     *logger.Logger
	now     func() time.Time
}

type EIAOption func(*EIAElectricitySource)

func WithEIABaseURL(u string) EIAOption {
	return func(s *EIAElectricitySource) {
		if u != "" {
			s.baseURL = u
		}
	}
}

func WithEIAAPIKey(key string) EIAOption {
	return func(s *EIAElectricitySource) { s.apiKey = key }
}

func WithEIAHTTPClient(c *xhttp.Client) EIAOption {
	return func(s *EIAElectricitySource) { s.http = c }
}

func WithEIALimiter(l *ratelimit.Limiter) EIAOption {
	return func(s *EIAElectricitySource) { s.limiter = l }
}

func WithEIALogger(l *logger.Logger) EIAOption {
	return func(s *EIAElectricitySource) { s.lgr = l }
}

func WithEIAClock(now func() time.Time) EIAOption {
	return func(s *EIAElectricitySource) { s.now = now }
}

func NewEIAElectricitySource(opts ...EIAOption) *EIAElectricitySource {
	s := &EIAElectricitySource{
		baseURL: DefaultEIABaseURL,
		lgr:     logger.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(5, 5)
	}
	return s
}

func (s *EIAElectricitySource) ID() string   { return models.SourceEIAElectricity }
func (s *EIAElectricitySource) Name() string { return "EIA Electricity" }

// FetchLatest returns the last 24 hours of demand.
func (s *EIAElectricitySource) FetchLatest(ctx context.Context) ([]models.Signal, error) {
	end := s.now().Truncate(time.Hour).Add(time.Hour)
	return s.FetchHistory(ctx, end.Add(-24*time.Hour), end)
}

// FetchHistory returns hourly demand in [start, end), ordered by respondent
// then period. A respondent that fails is skipped; the call fails only when
// every respondent does.
func (s *EIAElectricitySource) FetchHistory(ctx context.Context, start, end time.Time) ([]models.Signal, error) {
	if s.apiKey == "" {
		return nil, ErrEIAKeyMissing
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, nil
	}

	var (
		out  []models.Signal
		errs []error
	)
	for _, respondent := range Respondents {
		signals, err := s.fetchDemand(ctx, respondent, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.lgr.Warn("eia demand unavailable",
				logger.String("respondent", respondent),
				logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", respondent, err))
			continue
		}
		out = append(out, signals...)
	}
	if len(errs) == len(Respondents) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

type eiaResponse struct {
	Response struct {
		Data []eiaRow `json:"data"`
	} `json:"response"`
}

type eiaRow struct {
	Period     string          `json:"period"`
	Respondent string          `json:"respondent"`
	Value      json.RawMessage `json:"value"`
}

func (s *EIAElectricitySource) fetchDemand(ctx context.Context, respondent string, start, end time.Time) ([]models.Signal, error) {
	var out []models.Signal
	for page := 0; page < eiaMaxPages; page++ {
		if err := s.limiter.Wait(ctx, s.ID()); err != nil {
			return nil, err
		}
		var resp eiaResponse
		if err := s.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    s.baseURL + eiaRegionDataPath,
			QueryParams: map[string][]string{
				"api_key":              {s.apiKey},
				"frequency":            {"hourly"},
				"data[0]":              {"value"},
				"facets[respondent][]": {respondent},
				"facets[type][]":       {"D"},
				"start":                {start.Format(eiaPeriodLayout)},
				"end":                  {end.Add(-time.Hour).Format(eiaPeriodLayout)},
				"sort[0][column]":      {"period"},
				"sort[0][direction]":   {"asc"},
				"offset":               {strconv.Itoa(page * eiaPageSize)},
				"length":               {strconv.Itoa(eiaPageSize)},
			},
		}, &resp); err != nil {
			return nil, fmt.Errorf("fetch demand: %w", err)
		}

		for _, row := range resp.Response.Data {
			at, err := time.Parse(eiaPeriodLayout, row.Period)
			if err != nil || at.Before(start) || !at.Before(end) {
				continue
			}
			value, ok := positiveNumber(row.Value)
			if !ok {
				continue
			}
			out = append(out, demandSignal(respondent, value, at))
		}
		if len(resp.Response.Data) < eiaPageSize {
			break
		}
	}
	return out, nil
}

func demandSignal(respondent string, value float64, at time.Time) models.Signal {
	return models.Signal{
		Source:    models.SourceEIAElectricity,
		Name:      respondent + " demand",
		Value:     value,
		Unit:      demandUnit,
		Timestamp: at,
	}
}
