// Package httpclient holds the JSON-over-HTTP plumbing shared by the remote
// store and vision adapters.
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

// DefaultTimeout bounds a single request when the caller sets none.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response ends up in the error text.
const maxErrorBody = 512

// Sentinel kinds for transport errors.
var (
	ErrUnavailable = errors.New("remote service unavailable")
	ErrBadResponse = errors.New("unexpected response from remote service")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Unwrap classifies the status: 5xx and 429 are unavailability, the rest a bad response.
func (e *StatusError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests {
		return ErrUnavailable
	}
	return ErrBadResponse
}

// Client posts JSON documents and decodes JSON answers.
type Client struct {
	http    *http.Client
	headers http.Header
}

// New creates a Client. A nil hc gets a client with DefaultTimeout.
func New(hc *http.Client, headers map[string]string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	h := make(http.Header, len(headers))
	for k, v := range headers {
		if v != "" {
			h.Set(k, v)
		}
	}
	return &Client{http: hc, headers: h}
}

// PostJSON sends in as the request body and decodes the response into out.
// out may be nil when the body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), maxErrorBody)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %w", ErrBadResponse, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
