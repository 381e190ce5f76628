// Package apiclient implements model.LiveSource against the livelist HTTP API.
package apiclient

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

	"github.com/tinytelemetry/livelist/internal/model"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// Client fetches live pages over HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL (e.g. http://127.0.0.1:3000).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = model.DefaultRequestTimeout
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// FetchLives requests one page from GET /api/lives.
func (c *Client) FetchLives(ctx context.Context, cursor string, limit int) (model.Page, error) {
	u := *c.baseURL
	u.Path += "/api/lives"
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Page{}, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Page{}, fmt.Errorf("apiclient: fetch lives: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return model.Page{}, fmt.Errorf("apiclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return model.Page{}, &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	var page model.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return model.Page{}, fmt.Errorf("apiclient: decode page: %w", err)
	}
	return page, nil
}
