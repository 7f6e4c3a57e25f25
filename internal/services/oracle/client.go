package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ComputeOracle/internal/service/ratelimit"
	"ComputeOracle/pkg/config"
	xhttp "ComputeOracle/pkg/http"
	"ComputeOracle/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("oracle unavailable")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Completion describes one chat-completions call.
type Completion struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	http     *xhttp.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *ratelimit.Limiter
	attempts int
	lgr      *logger.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(h *xhttp.Client) ClientOption   { return func(c *Client) { c.http = h } }
func WithLimiter(l *ratelimit.Limiter) ClientOption { return func(c *Client) { c.limiter = l } }
func WithLogger(l *logger.Logger) ClientOption      { return func(c *Client) { c.lgr = l } }

// WithAttempts sets how many times a retryable failure is tried.
func WithAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBreaker trips after maxFailures consecutive failures and stays open
// for openTimeout.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) ClientOption {
	return func(c *Client) {
		c.breaker = newBreaker(maxFailures, openTimeout)
	}
}

func newBreaker(maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 3
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "oracle",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		attempts: 1,
		lgr:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(60 * time.Second))
	}
	if c.breaker == nil {
		c.breaker = newBreaker(3, 30*time.Second)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(0, 1)
	}
	return c
}

// NewClientFromConfig builds the client from the oracle section.
func NewClientFromConfig(cfg *config.Config, l *logger.Logger) *Client {
	o := cfg.Oracle
	return NewClient(o.BaseURL, o.APIKey,
		WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(o.Timeout))),
		WithLimiter(ratelimit.New(o.RequestsPerSec, o.Burst)),
		WithBreaker(o.Breaker.MaxFailures, o.Breaker.OpenTimeout),
		WithAttempts(2),
		WithLogger(l.With(logger.String("component", "oracle"))),
	)
}

// Complete sends one completion and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req Completion) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("oracle base url not configured")
	}
	if err := c.limiter.Wait(ctx, req.Model); err != nil {
		return "", fmt.Errorf("oracle rate limit: %w", err)
	}

	body := chatRequest{
		Model: req.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp chatResponse
		if err := c.postWithRetry(ctx, "/chat/completions", body, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.lgr.Warn("oracle call failed",
			logger.String("model", req.Model),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return "", err
	}

	resp := out.(*chatResponse)
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	c.lgr.Debug("oracle call complete",
		logger.String("model", req.Model),
		logger.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// postWithRetry retries only statuses that usually clear on their own.
func (c *Client) postWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= c.attempts; i++ {
		err = c.post(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if !errors.As(err, &se) || !se.Retryable() || i == c.attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
