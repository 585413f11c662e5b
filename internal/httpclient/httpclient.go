package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Logger defines the logging interface the client needs.
type Logger interface {
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// APIError describes an HTTP response with status >= 400.
type APIError struct {
	// Code is the HTTP status code.
	Code int

	// Message is taken from the response body's error object when present,
	// otherwise the HTTP status text.
	Message string

	// Details carries the error object's details field, if any.
	Details string
}

func (e *APIError) Error() string {
	if e.Code >= 100 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code)
	}
	return e.Message
}

// IsBadRequest reports whether err is an APIError with status 400.
func IsBadRequest(err error) bool { return hasStatus(err, http.StatusBadRequest) }

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is an APIError with status 403.
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// errorBody is the conventional error envelope in JSON error responses.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// Client is a thin JSON REST client.
//
// Requests carry a User-Agent and Accept: application/json; bodies are
// JSON-encoded. Responses with status >= 400 become *APIError. Successful
// response bodies are decoded into the caller's target when one is given;
// a body that fails to decode is logged, not fatal.
type Client struct {
	username  string
	password  string
	userAgent string
	http      *http.Client
	log       Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		c.userAgent = agent
	}
}

// WithLogger sets the logger for decode failures.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client with the given request timeout. A zero timeout
// means no limit.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		userAgent: "runward-httpclient",
		http:      &http.Client{Timeout: timeout},
		log:       noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request performs an HTTP request.
//
// body, when non-nil, is JSON-encoded and sent with Content-Type
// application/json. out, when non-nil, receives the decoded response body.
//
// Returns the response (with its body already consumed and closed) and an
// error: *APIError for status >= 400, or a transport error.
func (c *Client) Request(ctx context.Context, method, url string, body, out any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp, errorFromResponse(resp, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			// Mirror of the request side: a malformed success body is
			// reported but does not fail the call.
			c.log.Error("failed to decode response body", "url", url, "error", err)
		}
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, out any) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, url, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body, out any) (*http.Response, error) {
	return c.Request(ctx, http.MethodPost, url, body, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, url string, body, out any) (*http.Response, error) {
	return c.Request(ctx, http.MethodPut, url, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	return c.Request(ctx, http.MethodDelete, url, nil, nil)
}

// errorFromResponse builds an *APIError from an error response, preferring
// the body's error envelope over the bare status text.
func errorFromResponse(resp *http.Response, raw []byte) error {
	apiErr := &APIError{
		Code:    resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	var envelope errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &envelope) == nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		apiErr.Details = envelope.Error.Details
	}

	return apiErr
}
