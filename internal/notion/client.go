// Implements the Notion API client with rate limiting.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Notion API base URL.
	BaseURL = "https://api.notion.com/v1"
	// APIVersion is the pinned Notion API version.
	APIVersion = "2022-06-28"
	// MinInterval is the minimum time between requests (3 req/sec).
	MinInterval = 334 * time.Millisecond
)

// Client is a rate-limited Notion API client.
//
// Requests are serialized: each call waits for the previous one to complete.
type Client struct {
	// BaseURL defaults to the package BaseURL constant.
	BaseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	mu         sync.Mutex
}

// NewClient creates a new Notion API client authenticating with the
// integration token as a bearer credential.
func NewClient(token string) *Client {
	// The oauth2 transport sets "Authorization: Bearer <token>" on each request.
	hc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = 30 * time.Second
	return &Client{
		BaseURL:    BaseURL,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Every(MinInterval), 1),
	}
}

// do performs an HTTP request with rate limiting and decodes the JSON
// response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s %s response: %w", method, path, err)
	}
	return nil
}

// CreateDatabase creates a database under a parent page.
func (c *Client) CreateDatabase(ctx context.Context, req *CreateDatabaseRequest) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodPost, "/databases", req, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// UpdateDatabase adds or changes properties of an existing database.
// Properties not named in req are left untouched.
func (c *Client) UpdateDatabase(ctx context.Context, id string, req *UpdateDatabaseRequest) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodPatch, "/databases/"+id, req, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// CreatePage creates a row in a database.
func (c *Client) CreatePage(ctx context.Context, req *CreatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePage sets property values on an existing row.
func (c *Client) UpdatePage(ctx context.Context, id string, req *UpdatePageRequest) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+id, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryOptions defines the pagination of a database query.
type QueryOptions struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryDatabase queries a database for pages.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, opts *QueryOptions) (*QueryResponse, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}

	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", opts, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryDatabaseAll queries all pages in a database, handling pagination.
func (c *Client) QueryDatabaseAll(ctx context.Context, databaseID string) ([]Page, error) {
	var pages []Page
	var cursor string

	for {
		resp, err := c.QueryDatabase(ctx, databaseID, &QueryOptions{PageSize: 100, StartCursor: cursor})
		if err != nil {
			return nil, err
		}

		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = *resp.NextCursor
	}

	return pages, nil
}
