package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeChoice(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var got chatRequest
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, "hello")
	})

	c := NewClient(srv.URL+"/", "secret")
	text, err := c.Complete(context.Background(), Completion{
		Model: "m", System: "sys", Prompt: "user prompt", Temperature: 0.2, MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user prompt", got.Messages[1].Content)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := NewClient(srv.URL, "k").Complete(context.Background(), Completion{Model: "m"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCompleteRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeChoice(w, "ok")
	})
	text, err := NewClient(srv.URL, "k", WithAttempts(2)).Complete(context.Background(), Completion{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})
	c := NewClient(srv.URL, "k", WithBreaker(3, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), Completion{Model: "m"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	_, err := c.Complete(context.Background(), Completion{Model: "m"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCompleteRequiresBaseURL(t *testing.T) {
	_, err := NewClient("", "k").Complete(context.Background(), Completion{Model: "m"})
	assert.Error(t, err)
}
