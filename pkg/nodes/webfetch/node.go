// Package webfetch executes web-integration nodes by delegating to the
// external web-retrieval collaborator. Crawls are asynchronous and polled to
// completion under a wall-clock timeout.
package webfetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

const (
	defaultCrawlTimeout = 5 * time.Minute
	crawlPollInterval   = 5 * time.Second
)

type Executor struct {
	retriever    protocol.WebRetriever
	crawlTimeout time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewExecutor(logger *slog.Logger, retriever protocol.WebRetriever) *Executor {
	return &Executor{
		retriever:    retriever,
		crawlTimeout: defaultCrawlTimeout,
		pollInterval: crawlPollInterval,
		logger:       logger.With("module", "nodes.webfetch"),
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeWebFetch
}

func (e *Executor) Execute(ctx context.Context, _ protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.WebFetch
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("web integration node %s has no web fetch configuration", node.ID)
	}

	switch cfg.Capability {
	case models.WebCapabilityFetchPage:
		page, err := e.retriever.FetchPage(ctx, cfg.URL)
		if err != nil {
			return protocol.NodeResult{}, fmt.Errorf("failed to fetch page %s: %w", cfg.URL, err)
		}

		return protocol.NodeResult{Output: page}, nil
	case models.WebCapabilitySearch:
		return e.search(ctx, cfg)
	case models.WebCapabilityMapSite:
		links, err := e.retriever.MapSite(ctx, cfg.URL)
		if err != nil {
			return protocol.NodeResult{}, fmt.Errorf("failed to map site %s: %w", cfg.URL, err)
		}

		return protocol.NodeResult{Output: strings.Join(links, "\n")}, nil
	case models.WebCapabilityCrawlSite:
		return e.crawl(ctx, cfg)
	default:
		return protocol.NodeResult{}, fmt.Errorf("web integration node %s has unknown capability %q", node.ID, cfg.Capability)
	}
}

func (e *Executor) search(ctx context.Context, cfg *models.WebFetchConfig) (protocol.NodeResult, error) {
	results, err := e.retriever.Search(ctx, cfg.Query, cfg.Limit)
	if err != nil {
		return protocol.NodeResult{}, fmt.Errorf("search failed: %w", err)
	}

	var b strings.Builder

	for _, result := range results {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "%s\n%s\n%s", result.Title, result.URL, result.Snippet)
	}

	return protocol.NodeResult{Output: b.String()}, nil
}

// crawl starts a crawl job and polls it until completion, failure, or the
// wall-clock timeout.
func (e *Executor) crawl(ctx context.Context, cfg *models.WebFetchConfig) (protocol.NodeResult, error) {
	jobID, err := e.retriever.StartCrawl(ctx, cfg.URL, cfg.Limit)
	if err != nil {
		return protocol.NodeResult{}, fmt.Errorf("failed to start crawl of %s: %w", cfg.URL, err)
	}

	deadline := time.Now().Add(e.crawlTimeout)
	ticker := time.NewTicker(e.pollInterval)

	defer ticker.Stop()

	for {
		job, err := e.retriever.CrawlJob(ctx, jobID)
		if err != nil {
			return protocol.NodeResult{}, fmt.Errorf("failed to poll crawl %s: %w", jobID, err)
		}

		switch job.Status {
		case protocol.CrawlStatusCompleted:
			return protocol.NodeResult{Output: strings.Join(job.Pages, "\n\n---\n\n")}, nil
		case protocol.CrawlStatusFailed:
			return protocol.NodeResult{}, fmt.Errorf("crawl %s failed: %s", jobID, job.Error)
		case protocol.CrawlStatusRunning:
		}

		if time.Now().After(deadline) {
			return protocol.NodeResult{}, fmt.Errorf("crawl %s timed out after %s", jobID, e.crawlTimeout)
		}

		select {
		case <-ctx.Done():
			return protocol.NodeResult{}, fmt.Errorf("crawl %s canceled: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}
