package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/aggregate"
	"github.com/claude/liftlog/internal/classify"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/journal"
	"github.com/claude/liftlog/internal/models"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the journal lives on the server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	return c.do(req, path, out)
}

func rangeParams(r journal.Range) url.Values {
	v := url.Values{}
	if !r.Start.IsZero() {
		v.Set("start", r.Start.Format(models.DateLayout))
	}
	if !r.End.IsZero() {
		v.Set("end", r.End.Format(models.DateLayout))
	}
	return v
}

// getView fetches a view endpoint. Methods cannot be generic, so the
// DataSource methods below are thin wrappers around this.
func getView[T any](ctx context.Context, c *HTTPClient, path string, params url.Values) (journal.View[T], error) {
	var v journal.View[T]
	err := c.get(ctx, path, params, &v)
	return v, err
}

func (c *HTTPClient) Summary(ctx context.Context, r journal.Range) (journal.View[journal.Summary], error) {
	return getView[journal.Summary](ctx, c, "/api/v1/summary", rangeParams(r))
}

func (c *HTTPClient) VolumeByCategory(ctx context.Context, r journal.Range) (journal.View[[]aggregate.CategoryVolume], error) {
	return getView[[]aggregate.CategoryVolume](ctx, c, "/api/v1/volume/categories", rangeParams(r))
}

func (c *HTTPClient) DailyVolume(ctx context.Context, r journal.Range) (journal.View[[]aggregate.DayVolume], error) {
	return getView[[]aggregate.DayVolume](ctx, c, "/api/v1/volume/daily", rangeParams(r))
}

func (c *HTTPClient) Progression(ctx context.Context, exercise string, r journal.Range) (journal.View[[]aggregate.ProgressionPoint], error) {
	params := rangeParams(r)
	params.Set("exercise", exercise)
	return getView[[]aggregate.ProgressionPoint](ctx, c, "/api/v1/progression", params)
}

func (c *HTTPClient) Consistency(ctx context.Context, r journal.Range) (journal.View[[]aggregate.WeekdayCount], error) {
	return getView[[]aggregate.WeekdayCount](ctx, c, "/api/v1/consistency", rangeParams(r))
}

func (c *HTTPClient) TopExercises(ctx context.Context, n int, r journal.Range) (journal.View[[]aggregate.ExerciseCount], error) {
	params := rangeParams(r)
	params.Set("n", strconv.Itoa(n))
	return getView[[]aggregate.ExerciseCount](ctx, c, "/api/v1/exercises/top", params)
}

func (c *HTTPClient) Exercises(ctx context.Context, r journal.Range) (journal.View[[]string], error) {
	return getView[[]string](ctx, c, "/api/v1/exercises", rangeParams(r))
}

func (c *HTTPClient) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := c.get(ctx, "/api/v1/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) Classify(ctx context.Context, name string) (classify.Match, error) {
	var m classify.Match
	err := c.get(ctx, "/api/v1/classify", url.Values{"name": {name}}, &m)
	return m, err
}

func (c *HTTPClient) MuscleTable(ctx context.Context) (classify.Table, error) {
	var t classify.Table
	err := c.get(ctx, "/api/v1/muscles", nil, &t)
	return t, err
}

func (c *HTTPClient) ImportText(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	const path = "/api/v1/import/text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	var result ingest.Result
	if err := c.do(req, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
