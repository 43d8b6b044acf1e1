package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultEndpoint          = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel             = "gemini-2.5-flash-preview-05-20"
	defaultAttempts          = 3
	defaultInitialBackoff    = time.Second
	defaultBackoffMultiplier = 2
	// Grounding context is clipped well below the model's window; the
	// simplified text is usually a few thousand characters.
	maxAnswerChars = 120_000
)

const defaultLLMHTTPTimeout = 2 * time.Minute

// ErrNoAPIKey is returned by New when no credential is configured.
var ErrNoAPIKey = errors.New("gemini: api key not configured")

// Config describes how to build a gateway client.
type Config struct {
	Endpoint          string
	Model             string
	APIKey            string
	HTTPClient        *http.Client
	RequestTimeout    time.Duration
	Attempts          int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	RequestsPerMinute int
	Registerer        prometheus.Registerer
}

// Sender issues one logical request to the generation service and returns the
// extracted text.
type Sender interface {
	Send(ctx context.Context, req Request) (string, error)
}

func (c Config) withDefaults() Config {
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Attempts <= 0 {
		c.Attempts = defaultAttempts
	}
	if c.InitialBackoff < 0 {
		c.InitialBackoff = 0
	} else if c.InitialBackoff == 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = defaultBackoffMultiplier
	}
	return c
}

// pickHTTPClient returns custom when set, otherwise a client bounded by
// timeout. Document extraction on large scans regularly takes longer than a
// minute, so the fallback is generous.
func pickHTTPClient(custom *http.Client, timeout time.Duration) *http.Client {
	if custom != nil {
		return custom
	}
	if timeout <= 0 {
		timeout = defaultLLMHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}
