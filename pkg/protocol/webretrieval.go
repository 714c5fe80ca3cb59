package protocol

import "context"

// CrawlStatus is the lifecycle of an asynchronous crawl job.
type CrawlStatus string

const (
	CrawlStatusRunning   CrawlStatus = "running"
	CrawlStatusCompleted CrawlStatus = "completed"
	CrawlStatusFailed    CrawlStatus = "failed"
)

// SearchResult is one hit from the web-retrieval search capability.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// CrawlJob is the polled state of a crawl.
type CrawlJob struct {
	ID     string      `json:"id"`
	Status CrawlStatus `json:"status"`
	Pages  []string    `json:"pages,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// WebRetriever is the external web-retrieval collaborator. Crawl is
// asynchronous: StartCrawl returns a job id that callers poll via CrawlJob
// until completion or a caller-enforced timeout.
type WebRetriever interface {
	FetchPage(ctx context.Context, url string) (string, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	MapSite(ctx context.Context, url string) ([]string, error)
	StartCrawl(ctx context.Context, url string, limit int) (string, error)
	CrawlJob(ctx context.Context, jobID string) (CrawlJob, error)
}
