package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running daemon's HTTP API. The CLI commands that need
// daemon state (status, scan, cache, progress) go through it.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon at bind ("host:port" or a full
// URL). An empty token disables the Authorization header.
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Scan triggers a library scan and waits for its summary.
func (c *Client) Scan(ctx context.Context) (ScanResponse, error) {
	var out ScanResponse
	err := c.do(ctx, http.MethodPost, "/api/scan", nil, &out)
	return out, err
}

// CacheStats fetches asset cache usage.
func (c *Client) CacheStats(ctx context.Context) (CacheStats, error) {
	var out CacheStats
	err := c.do(ctx, http.MethodGet, "/api/cache/stats", nil, &out)
	return out, err
}

// CachePrune evicts cache entries down to the configured limits.
func (c *Client) CachePrune(ctx context.Context) (CacheStats, error) {
	var out CacheStats
	err := c.do(ctx, http.MethodPost, "/api/cache/prune", nil, &out)
	return out, err
}

// CacheClear removes every cache entry.
func (c *Client) CacheClear(ctx context.Context) (CacheStats, error) {
	var out CacheStats
	err := c.do(ctx, http.MethodPost, "/api/cache/clear", nil, &out)
	return out, err
}

// ListSeries fetches the series listing.
func (c *Client) ListSeries(ctx context.Context) ([]SeriesView, error) {
	var out SeriesListResponse
	if err := c.do(ctx, http.MethodGet, "/api/series", nil, &out); err != nil {
		return nil, err
	}
	return out.Series, nil
}

// ListProgress fetches all saved reading positions.
func (c *Client) ListProgress(ctx context.Context) ([]ProgressView, error) {
	var out ProgressListResponse
	if err := c.do(ctx, http.MethodGet, "/api/progress", nil, &out); err != nil {
		return nil, err
	}
	return out.Progress, nil
}

// ClearProgress removes the saved position for a series.
func (c *Client) ClearProgress(ctx context.Context, seriesID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/progress/%d", seriesID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("daemon API address is not configured")
	}
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
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s (%s)", apiErr.Error, resp.Status)
		}
		return fmt.Errorf("daemon: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
