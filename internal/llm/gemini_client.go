package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrTransportExhausted marks a request that failed on every attempt.
	ErrTransportExhausted = errors.New("remote service unavailable")
	// ErrMalformedResponse marks a 2xx reply without candidates[0].content.parts[0].text.
	ErrMalformedResponse = errors.New("could not extract text from API response")
	// ErrPacing marks an attempt the request limiter could not admit in time.
	ErrPacing = errors.New("request pacing")
)

// StatusError reports a non-2xx reply.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error: %s", e.Status)
	}
	return fmt.Sprintf("API error: %s (%s)", e.Status, e.Body)
}

// ExhaustedError is returned once the retry budget is spent. It wraps the
// failure of the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrTransportExhausted, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrTransportExhausted, e.Err}
}

// Client is the Gemini generateContent gateway. It retries recoverable
// failures with exponential backoff and keeps no conversation state.
type Client struct {
	endpoint       string
	model          string
	apiKey         string
	client         *http.Client
	attempts       int
	initialBackoff time.Duration
	multiplier     float64
	limiter        *rate.Limiter
	metrics        *gatewayMetrics
	sleep          func(context.Context, time.Duration) error
}

// New builds a gateway client from cfg, filling unset fields with defaults.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg = cfg.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Client{
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		apiKey:         cfg.APIKey,
		client:         pickHTTPClient(cfg.HTTPClient, cfg.RequestTimeout),
		attempts:       cfg.Attempts,
		initialBackoff: cfg.InitialBackoff,
		multiplier:     cfg.BackoffMultiplier,
		limiter:        limiter,
		metrics:        newGatewayMetrics(cfg.Registerer),
		sleep:          sleepContext,
	}, nil
}

// Name describes the configured backend for status lines.
func (c *Client) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.model)
}

// Send posts req and returns the first candidate's first text part. Transport
// errors, non-2xx replies and malformed bodies are retried alike; once the
// budget is spent the result wraps ErrTransportExhausted. Context cancellation
// ends the loop immediately.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	delay := c.initialBackoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		text, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		c.metrics.failures.WithLabelValues(failureReason(err)).Inc()
		log.Printf("[gateway] attempt %d/%d failed: %v", attempt, c.attempts, err)
		if attempt == c.attempts {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay = time.Duration(float64(delay) * c.multiplier)
	}
	c.metrics.exhausted.Inc()
	return "", &ExhaustedError{Attempts: c.attempts, Err: lastErr}
}

// attempt waits for the pacing limiter and then issues one request. A wait the
// deadline cannot cover counts as a failed attempt.
func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPacing, err)
	}
	return c.do(ctx, body)
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	c.metrics.attempts.Inc()
	started := time.Now()
	defer func() {
		c.metrics.latency.Observe(time.Since(started).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "", fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
		}
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: snippet(payload)}
	}

	var parsed Response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	text, ok := parsed.FirstText()
	if !ok {
		return "", ErrMalformedResponse
	}
	return text, nil
}

func (c *Client) generateURL() string {
	query := url.Values{}
	query.Set("key", c.apiKey)
	return fmt.Sprintf("%s/models/%s:generateContent?%s", c.endpoint, url.PathEscape(c.model), query.Encode())
}

func failureReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrPacing):
		return "pacing"
	default:
		return "transport"
	}
}

func snippet(body []byte) string {
	const limit = 256
	body = bytes.TrimSpace(body)
	if len(body) > limit {
		return string(body[:limit]) + "…"
	}
	return string(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
