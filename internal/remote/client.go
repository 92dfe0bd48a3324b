// Package remote implements the HTTP client for the daybook backend's
// row-oriented REST API. All methods take a context so callers control
// per-call deadlines; the embedded http.Client timeout is only a backstop.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Row is a single record as the backend stores it.
type Row = map[string]any

// Client is an HTTP client for the daybook backend.
type Client struct {
	BaseURL  string
	APIKey   string
	DeviceID string
	HTTP     *http.Client
}

// New creates a backend client.
func New(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health verifies server reachability. Callers treat any error as "offline";
// the result is never cached.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doNoAuth(ctx, "GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upsert creates or replaces a row by its client-generated id. Replaying the
// same row is harmless, which keeps retried creates idempotent.
func (c *Client) Upsert(ctx context.Context, table string, row Row) error {
	path := fmt.Sprintf("/v1/tables/%s/rows?upsert=true", url.PathEscape(table))
	return c.do(ctx, "POST", path, row, nil)
}

// Update applies a partial patch to an existing row.
func (c *Client) Update(ctx context.Context, table, id string, patch Row) error {
	path := fmt.Sprintf("/v1/tables/%s/rows/%s", url.PathEscape(table), url.PathEscape(id))
	return c.do(ctx, "PATCH", path, patch, nil)
}

// Delete removes a row. Deleting an already-absent row returns ErrNotFound;
// callers that replay deletes treat that as success.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	path := fmt.Sprintf("/v1/tables/%s/rows/%s", url.PathEscape(table), url.PathEscape(id))
	return c.do(ctx, "DELETE", path, nil, nil)
}

// Get fetches a single row, or ErrNotFound.
func (c *Client) Get(ctx context.Context, table, id string) (Row, error) {
	path := fmt.Sprintf("/v1/tables/%s/rows/%s", url.PathEscape(table), url.PathEscape(id))
	var row Row
	if err := c.do(ctx, "GET", path, nil, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// Rows fetches all of a user's rows in a table.
func (c *Client) Rows(ctx context.Context, table, userID string) ([]Row, error) {
	path := fmt.Sprintf("/v1/tables/%s/rows?user_id=%s", url.PathEscape(table), url.QueryEscape(userID))
	var rows []Row
	if err := c.do(ctx, "GET", path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// do executes an authenticated HTTP request.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, true)
}

// doNoAuth executes an unauthenticated HTTP request.
func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, false)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, auth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.DeviceID)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
			default:
				return &apiErr
			}
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrForbidden
		case http.StatusNotFound:
			return ErrNotFound
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
