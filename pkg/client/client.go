// Package client is a small HTTP client for the warren API, used by the CLI
// commands that talk to a running server.
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
	"time"

	"github.com/papercomputeco/warren/pkg/catalog"
	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/rabbithole"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("warren API request failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls a warren API server.
type Client struct {
	target *url.URL
	http   *http.Client
}

// New creates a client for the API at target, e.g. "http://localhost:8080".
// A nil httpClient uses a client with a 30s timeout.
func New(target string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL %q: scheme and host are required", target)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{target: u, http: httpClient}, nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, &pong)
}

// CreateCategory creates or overwrites a category.
func (c *Client) CreateCategory(ctx context.Context, cat *category.Category) (*category.Category, error) {
	body := map[string]any{
		"name":        cat.Name,
		"description": cat.Description,
		"image":       cat.Image,
		"parent_name": cat.ParentName,
	}

	var created category.Category
	if err := c.do(ctx, http.MethodPost, "/categories", nil, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCategory returns a single category.
func (c *Client) GetCategory(ctx context.Context, name string) (*category.Category, error) {
	var got category.Category
	if err := c.do(ctx, http.MethodGet, "/categories/"+url.PathEscape(name), nil, nil, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

// UpdateCategory applies a sparse patch to a category.
func (c *Client) UpdateCategory(ctx context.Context, name string, patch category.Patch) (*category.Category, error) {
	var updated category.Category
	if err := c.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(name), nil, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory deletes a category and returns the children that moved up.
func (c *Client) DeleteCategory(ctx context.Context, name string) ([]string, error) {
	var resp struct {
		Reparented []string `json:"reparented"`
	}
	if err := c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(name), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reparented, nil
}

// ListChildren returns the children of parent, or the root categories when
// parent is empty.
func (c *Client) ListChildren(ctx context.Context, parent string) ([]*category.Category, error) {
	q := url.Values{}
	if parent != "" {
		q.Set("parent_name", parent)
	}

	var children []*category.Category
	if err := c.do(ctx, http.MethodGet, "/categories", q, nil, &children); err != nil {
		return nil, err
	}
	return children, nil
}

// Tree returns the hierarchy below name.
func (c *Client) Tree(ctx context.Context, name string) (*category.Tree, error) {
	var root category.TreeNode
	path := "/categories/" + url.PathEscape(name) + "/tree"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &root); err != nil {
		return nil, err
	}
	return category.NewTree(&root), nil
}

// AddSimilarity relates two categories.
func (c *Client) AddSimilarity(ctx context.Context, a, b string) error {
	return c.do(ctx, http.MethodPost, "/similarities", nil, similarityBody(a, b), nil)
}

// RemoveSimilarity removes the pair a, b.
func (c *Client) RemoveSimilarity(ctx context.Context, a, b string) error {
	return c.do(ctx, http.MethodDelete, "/similarities", nil, similarityBody(a, b), nil)
}

// Analyze returns the rabbit hole and islands computed from one snapshot.
func (c *Client) Analyze(ctx context.Context) (*rabbithole.Report, error) {
	var report rabbithole.Report
	if err := c.do(ctx, http.MethodGet, "/rabbit_hole_and_islands", nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Stats returns the catalog sizes.
func (c *Client) Stats(ctx context.Context) (*catalog.Stats, error) {
	var stats catalog.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func similarityBody(a, b string) map[string]string {
	return map[string]string{
		"category_name_1": a,
		"category_name_2": b,
	}
}

// do sends one request and decodes a successful JSON response into out.
// A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.target
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u.Path = unescaped
	u.RawPath = path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to warren API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
