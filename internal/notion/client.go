package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion %d %s: %s", e.Status, e.Code, e.Message)
}

type Options struct {
	BaseURL string
	Token   string
	Version string
	Timeout time.Duration
}

// Client is a thin bearer-token client. It performs no throttling or retries.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		version: opts.Version,
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) RetrievePage(ctx context.Context, pageID string) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, nil, &page)
	return page, err
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, req UpdatePageRequest) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), nil, req, &page)
	return page, err
}

func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodPost, "/pages", nil, req, &page)
	return page, err
}

func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (PageList, error) {
	var list PageList
	err := c.do(ctx, http.MethodPost, "/databases/"+url.PathEscape(databaseID)+"/query", nil, req, &list)
	return list, err
}

func (c *Client) RetrieveBlock(ctx context.Context, blockID string) (Block, error) {
	var block Block
	err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID), nil, nil, &block)
	return block, err
}

// ListBlockChildren returns the first page of direct children.
func (c *Client) ListBlockChildren(ctx context.Context, blockID string) (BlockList, error) {
	var list BlockList
	err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children", nil, nil, &list)
	return list, err
}

func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) (BlockList, error) {
	var list BlockList
	body := struct {
		Children []Block `json:"children"`
	}{Children: children}
	err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID)+"/children", nil, body, &list)
	return list, err
}

func (c *Client) UpdateBlock(ctx context.Context, blockID string, block Block) (Block, error) {
	var updated Block
	err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID), nil, block, &updated)
	return updated, err
}

func (c *Client) RetrievePageProperty(ctx context.Context, pageID, propertyID string) (PropertyItem, error) {
	return c.RetrievePagePropertyFrom(ctx, pageID, propertyID, "")
}

// RetrievePagePropertyFrom fetches the page of a paginated property item
// that starts at cursor. An empty cursor means the first page.
func (c *Client) RetrievePagePropertyFrom(ctx context.Context, pageID, propertyID, cursor string) (PropertyItem, error) {
	var item PropertyItem
	path := "/pages/" + url.PathEscape(pageID) + "/properties/" + url.PathEscape(propertyID)
	var query url.Values
	if cursor != "" {
		query = url.Values{"start_cursor": {cursor}}
	}
	err := c.do(ctx, http.MethodGet, path, query, nil, &item)
	return item, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
