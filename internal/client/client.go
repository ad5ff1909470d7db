// Package client is the typed admin API client used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/server/responses"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const DefaultTimeout = 15 * time.Second

// Client talks to a running daemon.
type Client struct {
	httpClient *http.Client
	base       *url.URL
}

// New returns a client for the admin address, either host:port or a full URL.
func New(addr string, timeout time.Duration) (*Client, error) {
	raw := addr
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, errors.ConfigError("invalid admin address").
			WithCause(err).
			WithContext("addr", addr).
			Build()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, base: u}, nil
}

// Status fetches queue counts, settings and registrations.
func (c *Client) Status(ctx context.Context) (scheduler.Status, error) {
	var out scheduler.Status
	err := c.do(ctx, http.MethodGet, "/api/collection/status", nil, nil, &out)
	return out, err
}

// Enable turns on recurring collection. A zero cfg uses the daemon's default source.
func (c *Client) Enable(ctx context.Context, cfg scheduler.AutoUpdateConfig) (responses.SettingsResponse, error) {
	var out responses.SettingsResponse
	var body any
	if cfg != (scheduler.AutoUpdateConfig{}) {
		body = cfg
	}
	err := c.do(ctx, http.MethodPost, "/api/collection/auto-update", nil, body, &out)
	return out, err
}

// Disable turns off recurring collection.
func (c *Client) Disable(ctx context.Context) (responses.SettingsResponse, error) {
	var out responses.SettingsResponse
	err := c.do(ctx, http.MethodDelete, "/api/collection/auto-update", nil, nil, &out)
	return out, err
}

// UpdateInterval changes the interval of the active schedule.
func (c *Client) UpdateInterval(ctx context.Context, minutes int) (responses.SettingsResponse, error) {
	var out responses.SettingsResponse
	err := c.do(ctx, http.MethodPut, "/api/collection/auto-update/interval", nil,
		responses.IntervalRequest{Interval: minutes}, &out)
	return out, err
}

// Trigger enqueues a manual collection. A zero locator uses the daemon's default source.
func (c *Client) Trigger(ctx context.Context, loc testcase.Locator) (responses.TriggerResponse, error) {
	var out responses.TriggerResponse
	var body any
	if loc != (testcase.Locator{}) {
		body = responses.TriggerRequest{
			Source:        loc.Type,
			FilePath:      loc.FilePath,
			SpreadsheetID: loc.SpreadsheetID,
			SheetName:     loc.SheetName,
		}
	}
	err := c.do(ctx, http.MethodPost, "/api/collection/trigger", nil, body, &out)
	return out, err
}

// Jobs lists the most recent jobs.
func (c *Client) Jobs(ctx context.Context, count int) ([]*queue.Job, error) {
	var out responses.JobsResponse
	q := url.Values{"count": {strconv.Itoa(count)}}
	err := c.do(ctx, http.MethodGet, "/api/collection/jobs", q, nil, &out)
	return out.Jobs, err
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id string) (*queue.Job, error) {
	var out queue.Job
	if err := c.do(ctx, http.MethodGet, "/api/collection/jobs/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Clean removes finished jobs older than days.
func (c *Client) Clean(ctx context.Context, days int) (responses.CleanResponse, error) {
	var out responses.CleanResponse
	q := url.Values{"days": {strconv.Itoa(days)}}
	err := c.do(ctx, http.MethodPost, "/api/collection/clean", q, nil, &out)
	return out, err
}

// Pause stops workers from taking new jobs.
func (c *Client) Pause(ctx context.Context) (queue.Counts, error) {
	var out responses.QueueStateResponse
	err := c.do(ctx, http.MethodPost, "/api/collection/pause", nil, nil, &out)
	return out.Queue, err
}

// Resume lets workers take jobs again.
func (c *Client) Resume(ctx context.Context) (queue.Counts, error) {
	var out responses.QueueStateResponse
	err := c.do(ctx, http.MethodPost, "/api/collection/resume", nil, nil, &out)
	return out.Queue, err
}

// Alerts lists alerts, newest first.
func (c *Client) Alerts(ctx context.Context, f alerts.Filter) ([]alerts.Alert, error) {
	var out responses.AlertsResponse
	q := url.Values{}
	if f.UnacknowledgedOnly {
		q.Set("unacknowledged", "true")
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	err := c.do(ctx, http.MethodGet, "/api/alerts", q, nil, &out)
	return out.Alerts, err
}

// Acknowledge marks an alert as seen.
func (c *Client) Acknowledge(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/alerts/%d/ack", id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.InternalError("failed to marshal request").WithCause(err).Build()
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return errors.InternalError("failed to create request").WithCause(err).WithContext("url", u.String()).Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.TransportError("daemon is not reachable").
			WithCause(err).
			WithContext("url", u.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.TransportError("invalid response from daemon").WithCause(err).Build()
	}
	return nil
}

// decodeError rebuilds a classified error from the daemon's error payload.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload errors.HTTPErrorResponse
	if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
		return errors.TransportError(fmt.Sprintf("daemon returned %s", resp.Status)).
			WithContext("status_code", resp.StatusCode).
			Build()
	}

	category := errors.ErrorCategory(payload.Code)
	if category == "" {
		category = errors.CategoryInternal
	}
	b := errors.NewError(category, payload.Error)
	if category == errors.CategoryConfig {
		b = b.Fatal()
	}
	if payload.Retryable {
		b = b.Retryable()
	}
	for k, v := range payload.Details {
		b = b.WithContext(k, v)
	}
	return b.Build()
}
