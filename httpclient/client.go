// Package httpclient issues the engine's HTTP requests: base-URL routing,
// JSON encoding, a fixed process-wide timeout, and normalization of every
// failure into the Transport/HTTP/Application taxonomy. No retries, no
// backoff; resilience beyond the timeout is the caller's concern.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-query-cache/querycache"
)

// Interface assertion: the client is the engine's fetcher.
var _ querycache.Fetcher = (*Client)(nil)

// Client executes querycache requests against the configured backends. Each
// call is exactly one round trip.
type Client struct {
	http   *http.Client
	router Router
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient swaps the underlying *http.Client (for tests or custom
// transports). The configured timeout is applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New validates cfg and creates a client routing ClassifyPrefix paths to the
// classification backend and everything else to the primary backend.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		http:   &http.Client{},
		logger: slog.Default(),
		router: NewRouter(
			strings.TrimRight(cfg.BaseURL, "/"),
			Rule{Prefix: ClassifyPrefix, BaseURL: strings.TrimRight(cfg.ClassifyBaseURL, "/"), StripPrefix: true},
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = cfg.Timeout
	return c, nil
}

// Router returns the client's route table, mainly for inspection in tests.
func (c *Client) Router() Router {
	return c.router
}

// Do implements querycache.Fetcher. It resolves the base URL, performs the
// request, and returns the raw body of a 2xx response. Any failure comes back
// as a normalized *Error; Do never panics and never retries.
func (c *Client) Do(ctx context.Context, req querycache.Request) ([]byte, error) {
	base, path := c.router.Resolve(req.Path)
	target := base + path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, applicationError("encode request body", err)
		}
		body = bytes.NewReader(encoded)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, applicationError("build request", err)
	}
	requestID := uuid.NewString()
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(hr)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "url", target, "request_id", requestID, "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	c.logger.Debug("request completed",
		"method", req.Method,
		"url", target,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, httpError(resp.StatusCode, data)
	}
	return data, nil
}
