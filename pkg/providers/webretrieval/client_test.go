package webretrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, "test-key")
}

func TestFetchPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com", req["url"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"markdown": "# Example"},
		})
	})

	content, err := client.FetchPage(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "# Example", content)
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"url": "https://a.example", "title": "A", "description": "first"},
				{"url": "https://b.example", "title": "B", "description": "second"},
			},
		})
	})

	results, err := client.Search(context.Background(), "example", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example", results[0].URL)
	assert.Equal(t, "first", results[0].Snippet)
}

func TestStartCrawlMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})

	_, err := client.StartCrawl(context.Background(), "https://example.com", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job id")
}

func TestCrawlJobStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   protocol.CrawlStatus
	}{
		{name: "completed", status: "completed", want: protocol.CrawlStatusCompleted},
		{name: "failed", status: "failed", want: protocol.CrawlStatusFailed},
		{name: "cancelled maps to failed", status: "cancelled", want: protocol.CrawlStatusFailed},
		{name: "scraping still running", status: "scraping", want: protocol.CrawlStatusRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/crawl/job-1", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)

				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": tt.status,
					"data":   []map[string]string{{"markdown": "page"}},
				})
			})

			job, err := client.CrawlJob(context.Background(), "job-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, job.Status)
			assert.Equal(t, []string{"page"}, job.Pages)
		})
	}
}

func TestErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	})

	_, err := client.MapSite(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
