// Package client is a programmatic front end for the pipeline API.
// It mirrors what the admin UI does: fetch per-stage form schemas,
// submit merged config values, and browse stage results.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	apiPrefix      = "/api/v1"
)

// APIError carries the user-facing notification for a failed request.
// Status 0 means the request never got a response.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

// notificationFor maps a status code to a notification message,
// preferring the server-supplied message when present.
func notificationFor(status int, serverMsg string) string {
	if serverMsg != "" {
		return serverMsg
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid parameters"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return "request failed"
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client wraps the HTTP transport with envelope unwrapping and the
// per-status error mapping. All requests share one fixed timeout;
// there are no automatic retries.
type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(baseURL, "/") + apiPrefix,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// Post issues a POST with a JSON body and decodes the envelope's data into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("cannot encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPost, path, reader, "application/json", out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// Upload posts one file as multipart form data.
func (c *Client) Upload(ctx context.Context, path, filename string, content io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("cannot build upload: %v", err)}
	}
	if _, err := io.Copy(fw, content); err != nil {
		return &APIError{Message: fmt.Sprintf("cannot read upload: %v", err)}
	}
	if err := mw.Close(); err != nil {
		return &APIError{Message: fmt.Sprintf("cannot build upload: %v", err)}
	}
	return c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("cannot build request: %v", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Status: 0, Message: "cannot reach server"}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: 0, Message: "cannot reach server"}
	}

	var env envelope
	// a non-envelope body is treated as an empty message
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Status:  resp.StatusCode,
			Message: notificationFor(resp.StatusCode, env.Message),
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Message: fmt.Sprintf("cannot decode response: %v", err)}
		}
	}
	return nil
}
