// Package api is the single adapter between smartshop and the REST backend.
// Every request carries the caller's bearer token when one is available and
// every failure is mapped onto the internal/errors taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/dukerupert/smartshop/internal/errors"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to the backend. It is immutable; WithToken returns a copy
// bound to a token source.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// New creates a client for the backend rooted at baseURL
// (e.g. "http://localhost:8001/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithToken returns a copy of c that authenticates with ts.
func (c *Client) WithToken(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// Origin returns scheme://host of the backend.
func (c *Client) Origin() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
	absolute    *url.URL
}

func (c *Client) endpoint(r request) string {
	if r.absolute != nil {
		return r.absolute.String()
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(r.path, "/")
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	return u.String()
}

// send performs r and returns the body of a 2xx response.
func (c *Client) send(ctx context.Context, r request) ([]byte, http.Header, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r), body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		c.logger.Warn("backend unreachable", "method", r.method, "path", r.path, "error", err)
		return nil, nil, apperrors.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.Network(fmt.Errorf("read body: %w", err))
	}
	c.logger.Debug("backend request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, decodeError(resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	data, _, err := c.send(ctx, request{method: http.MethodGet, path: path, query: query})
	return data, err
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
	}
	data, _, err := c.send(ctx, request{method: method, path: path, body: body, contentType: "application/json"})
	return data, err
}

// errorBody is the backend's failure shape.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func decodeError(status int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	switch {
	case status == http.StatusUnauthorized || status == 419:
		return apperrors.Auth(eb.Message).WithStatus(status)
	case status == http.StatusForbidden:
		msg := eb.Message
		if msg == "" {
			msg = "forbidden"
		}
		return apperrors.Forbidden(msg).WithStatus(status)
	case status == http.StatusUnprocessableEntity || len(eb.Errors) > 0:
		return apperrors.Validation(eb.Message, eb.Errors).WithStatus(status)
	case status == http.StatusNotFound:
		msg := eb.Message
		if msg == "" {
			msg = "not found"
		}
		return apperrors.NotFound(msg).WithStatus(status)
	}
	if eb.Message != "" {
		return apperrors.Internalf("backend returned status %d: %s", status, eb.Message).WithStatus(status)
	}
	return apperrors.Internalf("backend returned status %d", status).WithStatus(status)
}
