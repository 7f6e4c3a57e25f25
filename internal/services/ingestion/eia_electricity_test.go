package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eiaServer answers region-data queries with one row per hour of the
// requested range, valued from 100000 upward for each respondent.
type eiaServer struct {
	mu       sync.Mutex
	failFor  map[string]bool
	queries  []map[string]string
	pageSize int
}

func (e *eiaServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	e.mu.Lock()
	e.queries = append(e.queries, map[string]string{
		"path":       r.URL.Path,
		"api_key":    q.Get("api_key"),
		"respondent": q.Get("facets[respondent][]"),
		"type":       q.Get("facets[type][]"),
		"start":      q.Get("start"),
		"end":        q.Get("end"),
		"offset":     q.Get("offset"),
	})
	respondent := q.Get("facets[respondent][]")
	failing := e.failFor[respondent]
	e.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	start, _ := time.Parse(eiaPeriodLayout, q.Get("start"))
	end, _ := time.Parse(eiaPeriodLayout, q.Get("end"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	size := e.pageSize
	if size == 0 {
		size = eiaPageSize
	}

	var rows []string
	i := 0
	for at := start; !at.After(end); at = at.Add(time.Hour) {
		if i >= offset && len(rows) < size {
			rows = append(rows, fmt.Sprintf(`{"period":%q,"respondent":%q,"value":"%d"}`,
				at.Format(eiaPeriodLayout), respondent, 100000+i))
		}
		i++
	}
	// Out-of-range and empty rows are ignored by the reader.
	if offset == 0 {
		rows = append(rows,
			fmt.Sprintf(`{"period":%q,"respondent":%q,"value":1}`, end.Add(time.Hour).Format(eiaPeriodLayout), respondent),
			fmt.Sprintf(`{"period":%q,"respondent":%q,"value":null}`, start.Format(eiaPeriodLayout), respondent))
	}
	_, _ = fmt.Fprintf(w, `{"response":{"data":[%s]}}`, strings.Join(rows, ","))
}

func (e *eiaServer) fail(respondents ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failFor = map[string]bool{}
	for _, r := range respondents {
		e.failFor[r] = true
	}
}

func (e *eiaServer) seen() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]string(nil), e.queries...)
}

func newEIASource(url string) *EIAElectricitySource {
	return NewEIAElectricitySource(
		WithEIABaseURL(url),
		WithEIAAPIKey("eia-key"),
		WithEIAClock(func() time.Time { return clockNow }))
}

func TestEIAFetchHistory(t *testing.T) {
	fake := &eiaServer{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	got, err := newEIASource(srv.URL).FetchHistory(context.Background(), start, start.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 9)

	assert.Equal(t, "PJM demand", got[0].Name)
	assert.Equal(t, 100000.0, got[0].Value)
	assert.Equal(t, start, got[0].Timestamp)
	assert.Equal(t, "PJM demand", got[2].Name)
	assert.Equal(t, start.Add(2*time.Hour), got[2].Timestamp)
	assert.Equal(t, "ERCO demand", got[3].Name)
	assert.Equal(t, "CISO demand", got[8].Name)
	for _, s := range got {
		assert.Equal(t, models.SourceEIAElectricity, s.Source)
		assert.Equal(t, "MWh", s.Unit)
	}

	queries := fake.seen()
	require.Len(t, queries, 3)
	q := queries[0]
	assert.Equal(t, "/electricity/rto/region-data/data/", q["path"])
	assert.Equal(t, "eia-key", q["api_key"])
	assert.Equal(t, "PJM", q["respondent"])
	assert.Equal(t, "D", q["type"])
	assert.Equal(t, "2025-11-01T00", q["start"])
	assert.Equal(t, "2025-11-01T02", q["end"])
}

func TestEIAFetchHistoryPages(t *testing.T) {
	fake := &eiaServer{pageSize: eiaPageSize}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	hours := eiaPageSize + 20
	got, err := newEIASource(srv.URL).FetchHistory(context.Background(), start, start.Add(time.Duration(hours)*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 3*hours)

	offsets := map[string]int{}
	for _, q := range fake.seen() {
		if q["respondent"] == "PJM" {
			offsets[q["offset"]]++
		}
	}
	assert.Equal(t, map[string]int{"0": 1, "100": 1}, offsets)
}

func TestEIAFetchHistoryIsolatesRespondentFailures(t *testing.T) {
	fake := &eiaServer{}
	fake.fail("ERCO")
	srv := httptest.NewServer(fake)
	defer srv.Close()

	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	got, err := newEIASource(srv.URL).FetchHistory(context.Background(), start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, s := range got {
		assert.NotEqual(t, "ERCO demand", s.Name)
	}

	fake.fail("PJM", "ERCO", "CISO")
	_, err = newEIASource(srv.URL).FetchHistory(context.Background(), start, start.Add(2*time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CISO")
}

func TestEIAFetchLatestCoversLastDay(t *testing.T) {
	fake := &eiaServer{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	got, err := newEIASource(srv.URL).FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3*24)
	queries := fake.seen()
	require.NotEmpty(t, queries)
	assert.Equal(t, "2025-10-31T13", queries[0]["start"])
	assert.Equal(t, "2025-11-01T12", queries[0]["end"])
}

func TestEIARequiresKey(t *testing.T) {
	src := NewEIAElectricitySource(WithEIABaseURL("http://unused"))
	_, err := src.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrEIAKeyMissing)
}
