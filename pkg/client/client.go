// Package client is a typed HTTP client for the music command API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPollInterval = time.Second
	defaultHTTPTimeout  = 2 * time.Minute
	maxErrorBody        = 64 * 1024
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Type       string `json:"error_type"`
	Message    string `json:"error"`
	CommandID  string `json:"command_id,omitempty"`
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CommandFailedError is returned by WaitForResult when the command ended without a result.
type CommandFailedError struct {
	Status *Status
}

func (e *CommandFailedError) Error() string {
	if e.Status.Error != "" {
		return fmt.Sprintf("command %s %s: %s", e.Status.CommandID, e.Status.Status, e.Status.Error)
	}
	return fmt.Sprintf("command %s %s", e.Status.CommandID, e.Status.Status)
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	headers      http.Header
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval sets how often WaitForResult polls the status endpoint.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHeader adds a header to every request, e.g. X-User-ID behind a gateway.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		headers:      http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitText queues a text (and optional melody) command.
func (c *Client) SubmitText(ctx context.Context, req TextRequest) (*Submission, error) {
	var out Submission
	if err := c.do(ctx, http.MethodPost, "/api/text-to-music", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAudio queues an audio command. See AudioDataURL for building the payload.
func (c *Client) SubmitAudio(ctx context.Context, req AudioRequest) (*Submission, error) {
	var out Submission
	if err := c.do(ctx, http.MethodPost, "/api/audio-to-music", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, commandID string) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodPost, "/api/command-status", map[string]string{"command_id": commandID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cancel(ctx context.Context, commandID string) (*Cancellation, error) {
	var out Cancellation
	if err := c.do(ctx, http.MethodDelete, "/api/cancel-command/"+url.PathEscape(commandID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Result fetches the artifacts of a completed command. A command that is not finished
// yet returns an APIError with status 409.
func (c *Client) Result(ctx context.Context, commandID string) (*Result, error) {
	var out Result
	if err := c.do(ctx, http.MethodGet, "/api/music-result/"+url.PathEscape(commandID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForResult polls until the command is terminal. onStatus, if set, sees every poll.
func (c *Client) WaitForResult(ctx context.Context, commandID string, onStatus func(*Status)) (*Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, commandID)
		if err != nil {
			return nil, err
		}
		if onStatus != nil {
			onStatus(st)
		}
		switch st.Status {
		case StatusCompleted:
			return c.Result(ctx, commandID)
		case StatusError, StatusCancelled:
			return nil, &CommandFailedError{Status: st}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
