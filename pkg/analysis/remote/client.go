// Package remote submits pipelines to the analysis service over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/analysis/api"
	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"resty.dev/v3"
)

var (
	ErrEmptyEndpoint = errors.New("remote: analyzer endpoint is empty")
	ErrUnreachable   = errors.New("remote: analysis service unreachable")
)

// StatusError is returned when the service answers with a non-success status
type StatusError struct {
	StatusCode int
	Status     string
	Detail     string // the service's "detail" field, if any
	Body       string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analysis service returned %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("analysis service returned %s", e.Status)
}

// errorBody is the service's error shape. Validation errors carry a list.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b *errorBody) text() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	return string(b.Detail)
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds each submission (default 10s)
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// Client is an api.Analyzer backed by the analysis service.
// Failures are returned to the caller as is; there is no retry.
type Client struct {
	mu       sync.RWMutex
	endpoint string
	http     *resty.Client
}

// New creates a client posting to endpoint (e.g. http://localhost:8000/pipelines/parse)
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http: resty.New().
			SetTimeout(10*time.Second).
			SetRetryCount(0).
			SetResponseBodyUnlimitedReads(true).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return "remote"
}

// Endpoint returns the URL submissions are posted to
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// SetEndpoint changes the URL for subsequent submissions
func (c *Client) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
}

// Analyze posts the pipeline and decodes the service's summary
func (c *Client) Analyze(ctx context.Context, p *model.Pipeline) (*api.Result, error) {
	endpoint := c.Endpoint()
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	var result api.Result
	var failure errorBody
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		SetResult(&result).
		SetError(&failure).
		Post(endpoint)
	if err != nil {
		if res != nil && res.IsError() {
			// An error status whose body could not be decoded
			return nil, &StatusError{StatusCode: res.StatusCode(), Status: res.Status(), Body: res.String()}
		}
		logging.ErrorContext(ctx, "analysis submission failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w at %s: %w", ErrUnreachable, endpoint, err)
	}

	if !res.IsSuccess() {
		serr := &StatusError{
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
			Detail:     failure.text(),
			Body:       res.String(),
		}
		logging.ErrorContext(ctx, "analysis service rejected pipeline", "endpoint", endpoint, "status", res.StatusCode())
		return nil, serr
	}

	logging.DebugContext(ctx, "analysis complete", "endpoint", endpoint,
		"numNodes", result.NumNodes, "numEdges", result.NumEdges, "isDAG", result.IsDAG)
	return &result, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}
