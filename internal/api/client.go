// Package api talks to the card usage HTTP API.
//
// Both endpoints are plain GETs with no parameters, body or credentials.
// Every failure is returned as an *Error carrying one of three kinds:
// network (transport errors and non-2xx statuses), empty body (nothing to
// decode, or no "data" value in the summary) and decode (anything that is
// not the expected JSON shape).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"card/internal/core"
	"card/internal/log"
)

const (
	DefaultBaseURL = "https://card-usages.vercel.app"
	SummaryPath    = "/api/hello2"
	UsagesPath     = "/api/usages-list"

	// DefaultTimeout mirrors the platform default for a foreground request.
	DefaultTimeout = 60 * time.Second

	maxBodyBytes = 4 << 20
)

const (
	opSummary = "read summary"
	opUsages  = "list usages"
)

// Client implements Source against the remote API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for baseURL. A non-positive timeout falls back
// to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ReadSummary implements SummaryReader. The response must be a JSON object
// whose "data" member is an integer.
func (c *Client) ReadSummary(ctx context.Context) (core.Summary, error) {
	body, err := c.get(ctx, opSummary, SummaryPath)
	if err != nil {
		return core.Summary{}, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return core.Summary{}, &Error{Kind: KindDecode, Op: opSummary, Err: err}
	}
	if obj == nil {
		return core.Summary{}, &Error{Kind: KindDecode, Op: opSummary, Err: fmt.Errorf("expected JSON object, got null")}
	}

	raw, ok := obj["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return core.Summary{}, &Error{Kind: KindEmptyBody, Op: opSummary, Err: fmt.Errorf("no data in response")}
	}

	var total int64
	if err := json.Unmarshal(raw, &total); err != nil {
		return core.Summary{}, &Error{Kind: KindDecode, Op: opSummary, Err: fmt.Errorf("data is not an integer: %w", err)}
	}

	c.logger.DebugContext(ctx, "Summary fetched", log.FieldTotal, total)
	return core.Summary{Total: total}, nil
}

// ListUsages implements UsageLister. The response must be a JSON array of
// complete usage records.
func (c *Client) ListUsages(ctx context.Context) ([]core.UsageRecord, error) {
	body, err := c.get(ctx, opUsages, UsagesPath)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &Error{Kind: KindDecode, Op: opUsages, Err: fmt.Errorf("expected JSON array")}
	}

	records := make([]core.UsageRecord, 0)
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &Error{Kind: KindDecode, Op: opUsages, Err: err}
	}

	c.logger.DebugContext(ctx, "Usages fetched", log.FieldCount, len(records))
	return records, nil
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Upstream response",
		log.FieldURL, url,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{Kind: KindEmptyBody, Op: op}
	}
	return body, nil
}
