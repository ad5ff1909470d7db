// Package syncclient pushes collected test-case batches to the ingestion
// boundary of the dashboard API.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const (
	DefaultPath    = "/api/testcases/sync"
	DefaultTimeout = 30 * time.Second

	// SourceExcel is the origin tag sent with every batch read from a spreadsheet file.
	SourceExcel = "excel"
)

// Batch is the sync payload.
type Batch struct {
	TestCases []testcase.Record `json:"testcases"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
	FileHash  string            `json:"fileHash"`
}

// Ack is the ingestion boundary's acceptance of a batch.
type Ack struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Pusher delivers a batch. *Client implements it.
type Pusher interface {
	Push(ctx context.Context, batch Batch) (*Ack, error)
}

// Client posts batches over HTTP. It never retries on its own.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (its Timeout is kept).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPath overrides the sync path under the base URL.
func WithPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.endpoint = p
		}
	}
}

// WithTimeout overrides the per-push timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New returns a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		endpoint:   DefaultPath,
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ConfigError("invalid sync base URL").
			WithCause(err).
			WithContext("base_url", baseURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), strings.TrimPrefix(c.endpoint, "/"))
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	c.endpoint = u.String()
	return c, nil
}

// Endpoint is the absolute URL batches are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Push posts the batch. Any 2xx is an ack; everything else, including
// timeouts and connection failures, is a retryable transport error.
func (c *Client) Push(ctx context.Context, batch Batch) (*Ack, error) {
	if batch.TestCases == nil {
		batch.TestCases = []testcase.Record{}
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, errors.InternalError("failed to marshal sync batch").WithCause(err).Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalError("failed to create sync request").
			WithCause(err).
			WithContext("url", c.endpoint).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tccollector/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransportError("sync request failed").
			WithCause(err).
			WithContext("url", c.endpoint).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	limited, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.ReplaceAll(string(limited), "\n", " ")
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, errors.TransportError(fmt.Sprintf("sync rejected: %s", resp.Status)).
			WithContext("status_code", resp.StatusCode).
			WithContext("url", c.endpoint).
			WithContext("response", snippet).
			Build()
	}

	ack := &Ack{StatusCode: resp.StatusCode}
	if json.Valid(limited) {
		ack.Body = json.RawMessage(limited)
	}
	return ack, nil
}
