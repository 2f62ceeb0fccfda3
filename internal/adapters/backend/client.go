// Package backend is the client for the organization's REST API, which owns
// all member, organization, event, rate plan and template data.
//
// Every call takes a RequestContext carrying the admin's bearer token. The
// client never reads credentials from ambient state.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// RequestContext carries the per-request credentials for backend calls.
type RequestContext struct {
	Token string // bearer token issued by the admin login
	Actor string // admin email, for logs only
}

// Anonymous is the context used before login and for public registration.
var Anonymous = RequestContext{}

// Observer receives one callback per completed backend request.
type Observer interface {
	ObserveBackendCall(resource, method string, status int, err error, d time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(resource, method string, status int, err error, d time.Duration)

// ObserveBackendCall implements Observer.
func (f ObserverFunc) ObserveBackendCall(resource, method string, status int, err error, d time.Duration) {
	f(resource, method, status, err, d)
}

// Config holds backend connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the REST backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	observers  []Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObserver registers an observer for request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewClient creates a backend client.
// PRE: cfg.BaseURL is an absolute http(s) URL
// POST: returns a ready client or an error describing the bad URL
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute http(s)", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the status part every backend response shares.
type envelope struct {
	Success *flexBool  `json:"success"`
	Error   flexString `json:"error"`
	Message string     `json:"message"`
}

// do sends one request and decodes the JSON response into out.
// PRE: resource is a path such as "/members"; out is nil or a pointer
// POST: non-2xx statuses and success:false bodies return *APIError
func (c *Client) do(ctx context.Context, rc RequestContext, method, resource string, query url.Values, body, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, rc, method, resource, query, body, out)
	d := time.Since(start)
	for _, o := range c.observers {
		o.ObserveBackendCall(resource, method, status, err, d)
	}
	if err != nil {
		slog.Warn("backend_request_failed",
			"method", method,
			"resource", resource,
			"status", status,
			"actor", rc.Actor,
			"duration_ms", d.Milliseconds(),
			"error", err,
		)
		return err
	}
	slog.Debug("backend_request", "method", method, "resource", resource, "status", status, "duration_ms", d.Milliseconds())
	return nil
}

func (c *Client) roundTrip(ctx context.Context, rc RequestContext, method, resource string, query url.Values, body, out any) (int, error) {
	op := method + " " + resource
	u := *c.baseURL
	u.Path = c.baseURL.Path + resource
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: read response: %w", op, err)
	}

	trimmed := bytes.TrimSpace(raw)
	var env envelope
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// A malformed envelope is reported by the decode into out below.
		_ = json.Unmarshal(trimmed, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &APIError{Op: op, Status: resp.StatusCode, Message: env.text(trimmed)}
	}
	if env.Success != nil && !bool(*env.Success) {
		return resp.StatusCode, &APIError{Op: op, Status: resp.StatusCode, Message: env.text(trimmed), Refused: true}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return resp.StatusCode, nil
}

// text picks the most useful message from an error body.
func (e envelope) text(raw []byte) string {
	if e.Message != "" {
		return e.Message
	}
	if s := string(e.Error); s != "" && s != "true" && s != "false" {
		return s
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// IsUnauthorized reports whether err means the bearer token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}
