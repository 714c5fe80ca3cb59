// Package webretrieval implements the external web-retrieval collaborator
// over a Firecrawl-style HTTP API: page scraping, search, site mapping, and
// asynchronous crawls.
package webretrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cascadehq/cascade/pkg/protocol"
)

const defaultTimeout = 60 * time.Second

// Client calls the web-retrieval API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("web retrieval request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web retrieval provider returned status %d: %s", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// FetchPage scrapes one page and returns its markdown content.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	var resp struct {
		Data struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}

	err := c.post(ctx, "/v1/scrape", map[string]any{"url": url, "formats": []string{"markdown"}}, &resp)
	if err != nil {
		return "", err
	}

	return resp.Data.Markdown, nil
}

// Search runs a web search and returns up to limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]protocol.SearchResult, error) {
	var resp struct {
		Data []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"data"`
	}

	err := c.post(ctx, "/v1/search", map[string]any{"query": query, "limit": limit}, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]protocol.SearchResult, 0, len(resp.Data))
	for _, hit := range resp.Data {
		results = append(results, protocol.SearchResult{
			URL:     hit.URL,
			Title:   hit.Title,
			Snippet: hit.Description,
		})
	}

	return results, nil
}

// MapSite lists the URLs reachable from a site.
func (c *Client) MapSite(ctx context.Context, url string) ([]string, error) {
	var resp struct {
		Links []string `json:"links"`
	}

	err := c.post(ctx, "/v1/map", map[string]any{"url": url}, &resp)
	if err != nil {
		return nil, err
	}

	return resp.Links, nil
}

// StartCrawl begins an asynchronous crawl and returns its job id.
func (c *Client) StartCrawl(ctx context.Context, url string, limit int) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}

	err := c.post(ctx, "/v1/crawl", map[string]any{"url": url, "limit": limit}, &resp)
	if err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("crawl start returned no job id")
	}

	return resp.ID, nil
}

// CrawlJob polls a crawl job's status.
func (c *Client) CrawlJob(ctx context.Context, jobID string) (protocol.CrawlJob, error) {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   []struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}

	err := c.get(ctx, "/v1/crawl/"+jobID, &resp)
	if err != nil {
		return protocol.CrawlJob{}, err
	}

	job := protocol.CrawlJob{ID: jobID, Error: resp.Error}

	switch resp.Status {
	case "completed":
		job.Status = protocol.CrawlStatusCompleted
	case "failed", "cancelled":
		job.Status = protocol.CrawlStatusFailed
	default:
		job.Status = protocol.CrawlStatusRunning
	}

	for _, page := range resp.Data {
		job.Pages = append(job.Pages, page.Markdown)
	}

	return job, nil
}
