// Package fetch provides the retrying HTTP client used by every upstream
// source. Bounded retries with exponential backoff are the entire resilience
// story; callers treat exhaustion as recoverable and skip the source.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Config controls retry behavior.
type Config struct {
	MaxAttempts int           // total attempts, not retries after the first
	DelayBase   time.Duration // sleep before attempt i+1 is DelayBase * Multiplier^i
	Multiplier  float64
	Timeout     time.Duration // per-attempt timeout
	UserAgent   string
}

// DefaultConfig returns the retry policy used in production.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		DelayBase:   time.Second,
		Multiplier:  2.0,
		Timeout:     30 * time.Second,
		UserAgent:   "Mozilla/5.0",
	}
}

// ExhaustedError reports that all attempts for a request failed. It carries
// the last underlying error; call sites convert it to "treat source as empty"
// or "skip this ticker", never into a run abort.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Client issues outbound requests with bounded retries. It is the sole point
// of contact with flaky upstream endpoints.
type Client struct {
	httpClient *http.Client
	cfg        Config
	sleep      func(time.Duration)
}

// NewClient creates a fetch client with the given retry policy.
func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		sleep:      time.Sleep,
	}
}

// Get retrieves a page and returns the body bytes.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/json")
		return req, nil
	})
}

// PostJSON sends a structured query and returns the response body bytes.
func (c *Client) PostJSON(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

// do runs one request up to MaxAttempts times. Transport failures and
// non-success statuses are treated identically.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.cfg.DelayBase) * math.Pow(c.cfg.Multiplier, float64(attempt-1)))
			c.sleep(delay)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		return body, nil
	}
	return nil, &ExhaustedError{Attempts: c.cfg.MaxAttempts, Last: lastErr}
}
