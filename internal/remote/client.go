// Package remote is the HTTP client for the business backend that queued
// operations are ultimately applied to.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"offlinesync/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client calls the backend REST API, pacing requests with a token bucket
// when a rate limit is configured.
type Client struct {
	baseURL    string
	apiKey     string
	header     string
	probePath  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger
}

func NewClient(cfg config.RemoteConfig, probePath string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	header := cfg.HeaderAPIKey
	if header == "" {
		header = "x-api-key"
	}
	if probePath == "" {
		probePath = "/health"
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		header:     header,
		probePath:  probePath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 5
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}
	return c
}

// Do sends body as JSON with method to path and decodes the response into
// out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.header, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("dur", time.Since(start)).
		Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Ping reports whether the backend health endpoint answers with 2xx.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, c.probePath, nil, nil)
}
