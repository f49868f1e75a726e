// Package client talks to a running taskboard service over HTTP and its
// websocket change streams. It implements board.Gateway so the board core can
// run against a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/blob"
	"taskboard/internal/models"
)

// APIError is a failed response that maps onto no domain error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client wraps http.Client with helpers for the taskboard JSON API.
type Client struct {
	baseURL   string
	token     string
	http      *http.Client
	maxUpload int64
	logger    *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used by change streams.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxUpload sets the client-side attachment ceiling.
func WithMaxUpload(n int64) Option {
	return func(c *Client) { c.maxUpload = n }
}

// New creates a client for baseURL authenticating with token.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		http:      &http.Client{Timeout: timeout},
		maxUpload: blob.DefaultMaxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON sends body as JSON and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = buf
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError maps a failed response back onto the domain error taxonomy.
func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	msg := body.Error

	switch resp.StatusCode {
	case http.StatusBadRequest:
		field, message, ok := strings.Cut(msg, ": ")
		if !ok {
			field, message = "request", msg
		}
		return &models.ValidationError{Field: field, Message: message}
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, models.ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, models.ErrForbidden)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, models.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", msg, models.ErrTaskCompleted)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%s: %w", msg, models.ErrTooLarge)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
