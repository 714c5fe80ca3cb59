package webfetch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	page    string
	results []protocol.SearchResult
	links   []string

	crawlPolls int
	crawlDone  int // poll count after which the crawl completes; -1 never
	crawlPages []string
}

func (r *fakeRetriever) FetchPage(context.Context, string) (string, error) {
	return r.page, nil
}

func (r *fakeRetriever) Search(context.Context, string, int) ([]protocol.SearchResult, error) {
	return r.results, nil
}

func (r *fakeRetriever) MapSite(context.Context, string) ([]string, error) {
	return r.links, nil
}

func (r *fakeRetriever) StartCrawl(context.Context, string, int) (string, error) {
	return "job-1", nil
}

func (r *fakeRetriever) CrawlJob(context.Context, string) (protocol.CrawlJob, error) {
	r.crawlPolls++

	if r.crawlDone >= 0 && r.crawlPolls > r.crawlDone {
		return protocol.CrawlJob{ID: "job-1", Status: protocol.CrawlStatusCompleted, Pages: r.crawlPages}, nil
	}

	return protocol.CrawlJob{ID: "job-1", Status: protocol.CrawlStatusRunning}, nil
}

func newTestExecutor(retriever *fakeRetriever) *Executor {
	executor := NewExecutor(slog.Default(), retriever)
	executor.crawlTimeout = 200 * time.Millisecond
	executor.pollInterval = 10 * time.Millisecond

	return executor
}

func webNode(cfg *models.WebFetchConfig) *models.Node {
	return &models.Node{ID: "web-1", Type: models.NodeTypeWebFetch, Config: models.NodeConfig{WebFetch: cfg}}
}

func TestExecuteFetchPage(t *testing.T) {
	executor := newTestExecutor(&fakeRetriever{page: "# Acme\ncontent"})

	result, err := executor.Execute(context.Background(), protocol.NodeInput{}, webNode(&models.WebFetchConfig{
		Capability: models.WebCapabilityFetchPage,
		URL:        "https://acme.test",
	}))
	require.NoError(t, err)
	assert.Equal(t, "# Acme\ncontent", result.Output)
}

func TestExecuteSearch(t *testing.T) {
	executor := newTestExecutor(&fakeRetriever{results: []protocol.SearchResult{
		{URL: "https://a.test", Title: "A", Snippet: "first"},
		{URL: "https://b.test", Title: "B", Snippet: "second"},
	}})

	result, err := executor.Execute(context.Background(), protocol.NodeInput{}, webNode(&models.WebFetchConfig{
		Capability: models.WebCapabilitySearch,
		Query:      "acme",
		Limit:      2,
	}))
	require.NoError(t, err)
	assert.Equal(t, "A\nhttps://a.test\nfirst\n\nB\nhttps://b.test\nsecond", result.Output)
}

func TestExecuteCrawlPollsToCompletion(t *testing.T) {
	retriever := &fakeRetriever{crawlDone: 2, crawlPages: []string{"page one", "page two"}}
	executor := newTestExecutor(retriever)

	result, err := executor.Execute(context.Background(), protocol.NodeInput{}, webNode(&models.WebFetchConfig{
		Capability: models.WebCapabilityCrawlSite,
		URL:        "https://acme.test",
	}))
	require.NoError(t, err)
	assert.Equal(t, "page one\n\n---\n\npage two", result.Output)
	assert.Equal(t, 3, retriever.crawlPolls)
}

func TestExecuteCrawlTimeout(t *testing.T) {
	retriever := &fakeRetriever{crawlDone: -1}
	executor := newTestExecutor(retriever)

	_, err := executor.Execute(context.Background(), protocol.NodeInput{}, webNode(&models.WebFetchConfig{
		Capability: models.WebCapabilityCrawlSite,
		URL:        "https://acme.test",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestExecuteUnknownCapability(t *testing.T) {
	executor := newTestExecutor(&fakeRetriever{})

	_, err := executor.Execute(context.Background(), protocol.NodeInput{}, webNode(&models.WebFetchConfig{
		Capability: "teleport",
	}))
	assert.Error(t, err)
}
