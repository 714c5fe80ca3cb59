package sink

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cascadehq/cascade/pkg/channels/gochannel"
	"github.com/cascadehq/cascade/pkg/events"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence/file"
	"github.com/cascadehq/cascade/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string][]string
	fail    bool
}

func (c *memoryCache) Append(_ context.Context, tenantID, cache, entry string) error {
	if c.fail {
		return errors.New("cache down")
	}

	if c.entries == nil {
		c.entries = make(map[string][]string)
	}

	key := tenantID + "/" + cache
	c.entries[key] = append([]string{entry}, c.entries[key]...)

	return nil
}

func newTestRouter(t *testing.T) (*Router, *memoryCache, *file.Persistence) {
	t.Helper()

	publisher, _, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	store := file.NewPersistence(t.TempDir())
	schemas := schema.NewService(slog.Default(), store.SchemaRepository(), store.PendingChangeRepository())
	caches := &memoryCache{}

	return NewRouter(slog.Default(), publisher, schemas, caches, store.PendingChangeRepository()), caches, store
}

func testEvent() events.NodeOutputEvent {
	return events.NodeOutputEvent{
		TenantID:   "tenant-1",
		WorkflowID: "wf-1",
		NodeID:     "node-1",
		NodeLabel:  "Summary",
		NodeType:   models.NodeTypePrompt,
		Payload:    "the output",
		Version:    2,
	}
}

func TestDispatchUnifiedDestinations(t *testing.T) {
	router, caches, store := newTestRouter(t)

	counts := router.Dispatch(context.Background(), testEvent(), models.SyncSettings{
		Destinations: []models.SyncDestination{
			models.SyncPlatformA,
			models.SyncSharedCache,
			models.SyncMasterData,
		},
		CacheName: "summaries",
		Domain:    "customer",
		Path:      "summary",
	})

	assert.Equal(t, Counts{
		models.SyncPlatformA:   1,
		models.SyncSharedCache: 1,
		models.SyncMasterData:  1,
	}, counts)

	assert.Equal(t, []string{"the output"}, caches.entries["tenant-1/summaries"])

	value, err := store.SchemaRepository().GetFieldValue(context.Background(), "tenant-1", "customer", "", "summary")
	require.NoError(t, err)
	assert.Equal(t, "the output", value.Value)
	assert.Equal(t, "wf-1:node-1", value.Source)
}

func TestDispatchLegacyFlags(t *testing.T) {
	router, _, store := newTestRouter(t)

	counts := router.Dispatch(context.Background(), testEvent(), models.SyncSettings{
		PendingChange: true,
		Domain:        "customer",
		Path:          "summary",
	})

	assert.Equal(t, Counts{models.SyncPendingChange: 1}, counts)

	pending, err := store.PendingChangeRepository().ListByStatus(context.Background(), "tenant-1", models.PendingChangeStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "the output", pending[0].Value)
	assert.Equal(t, 2, pending[0].Provenance.Version)
}

func TestDispatchNoDestinations(t *testing.T) {
	router, _, _ := newTestRouter(t)

	counts := router.Dispatch(context.Background(), testEvent(), models.SyncSettings{})

	assert.Empty(t, counts)
}

func TestDispatchFailureIsContained(t *testing.T) {
	router, caches, _ := newTestRouter(t)
	caches.fail = true

	counts := router.Dispatch(context.Background(), testEvent(), models.SyncSettings{
		Destinations: []models.SyncDestination{
			models.SyncSharedCache,
			models.SyncPlatformB,
		},
	})

	// The cache failure is logged; the remaining destination still delivers.
	assert.Equal(t, Counts{models.SyncPlatformB: 1}, counts)
}

func TestCountsMerge(t *testing.T) {
	total := Counts{models.SyncPlatformA: 1}
	total.Merge(Counts{models.SyncPlatformA: 2, models.SyncSharedCache: 1})

	assert.Equal(t, Counts{models.SyncPlatformA: 3, models.SyncSharedCache: 1}, total)
}
