package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/ingest"
)

// ErrRejected is returned when the server refuses a log as invalid. Such
// uploads are not retried.
var ErrRejected = errors.New("rejected by server")

// Client sends logs to the LiftLog server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the LiftLog server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// CheckHealth verifies the server is reachable before any file is read.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

// SendText POSTs a text log to the server's text import endpoint.
func (c *Client) SendText(ctx context.Context, data []byte) (*ingest.Result, error) {
	return c.send(ctx, "/api/v1/import/text", "text/plain; charset=utf-8", data)
}

// SendAlpha POSTs an Alpha Progression CSV export.
func (c *Client) SendAlpha(ctx context.Context, data []byte) (*ingest.Result, error) {
	return c.send(ctx, "/api/v1/import/alpha", "text/csv; charset=utf-8", data)
}

// SendJSON POSTs a session array. mode is "replace" or "merge".
func (c *Client) SendJSON(ctx context.Context, data []byte, mode string) (*ingest.Result, error) {
	path := "/api/v1/import/json?" + url.Values{"mode": {mode}}.Encode()
	return c.send(ctx, path, "application/json", data)
}

// send retries up to c.attempts times with exponential backoff on network
// and server errors. 4xx responses fail immediately with ErrRejected.
func (c *Client) send(ctx context.Context, path, contentType string, data []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range c.attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var result ingest.Result
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding import result: %w", err)
			}
			return &result, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(body))
		}
		lastErr = fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.attempts, lastErr)
}
