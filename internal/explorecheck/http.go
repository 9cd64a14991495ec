package explorecheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/domain/types"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the explore HTTP API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(cfg *Config) *Client {
	return &Client{
		base:  cfg.BaseURL,
		token: cfg.Token,
		http:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

type recalculateRequest struct {
	ForceAll bool   `json:"force_all,omitempty"`
	Priority string `json:"priority"`
}

// Trigger starts a high priority recalculation under a fresh idempotency key.
func (c *Client) Trigger(ctx context.Context, forceAll bool) (jobs.TriggerResult, error) {
	var res jobs.TriggerResult
	header := http.Header{"Idempotency-Key": []string{uuid.NewString()}}
	err := c.do(ctx, http.MethodPost, "/explore/jobs/recalculate",
		recalculateRequest{ForceAll: forceAll, Priority: "high"}, header, &res)
	return res, err
}

// Job fetches a job snapshot.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var job Job
	err := c.do(ctx, http.MethodGet, "/explore/jobs/"+url.PathEscape(id), nil, nil, &job)
	return job, err
}

// CategoryPage fetches one page of a category leaderboard.
func (c *Client) CategoryPage(ctx context.Context, categoryID string, page, limit int) (types.CategoryPage, error) {
	var out types.CategoryPage
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	err := c.do(ctx, http.MethodGet, "/explore/categories/"+url.PathEscape(categoryID)+"?"+q.Encode(), nil, nil, &out)
	return out, err
}

// Feed fetches the personalized feed for userID; empty means anonymous.
func (c *Client) Feed(ctx context.Context, userID string) (types.Feed, error) {
	var out types.Feed
	path := "/explore/for-you"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}
