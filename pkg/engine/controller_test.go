package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cascadehq/cascade/pkg/alerts"
	"github.com/cascadehq/cascade/pkg/channels/gochannel"
	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes"
	"github.com/cascadehq/cascade/pkg/persistence/file"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/cascadehq/cascade/pkg/schema"
	"github.com/cascadehq/cascade/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompletion echoes the prompt back, or delegates to a custom
// respond function when set.
type scriptedCompletion struct {
	mu      sync.Mutex
	calls   []protocol.CompletionRequest
	respond func(req protocol.CompletionRequest) (protocol.CompletionResponse, error)
}

func (p *scriptedCompletion) Complete(_ context.Context, req protocol.CompletionRequest) (protocol.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.respond != nil {
		return p.respond(req)
	}

	return protocol.CompletionResponse{
		Text:         "resp: " + req.Messages[0].Content,
		FinishReason: protocol.FinishReasonStop,
	}, nil
}

func (p *scriptedCompletion) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.calls)
}

type memoryCache struct {
	entries map[string][]string
}

func (c *memoryCache) Append(_ context.Context, tenantID, cache, entry string) error {
	if c.entries == nil {
		c.entries = make(map[string][]string)
	}

	key := tenantID + "/" + cache
	c.entries[key] = append([]string{entry}, c.entries[key]...)

	return nil
}

func (c *memoryCache) RecentEntries(_ context.Context, tenantID, cache string, limit int) ([]string, error) {
	entries := c.entries[tenantID+"/"+cache]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	return entries, nil
}

type harness struct {
	controller *Controller
	store      *file.Persistence
	provider   *scriptedCompletion
	caches     *memoryCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	provider := &scriptedCompletion{}
	caches := &memoryCache{}

	schemas := schema.NewService(logger, store.SchemaRepository(), store.PendingChangeRepository())

	registry, err := nodes.NewRegistry(logger, nodes.Collaborators{
		Completion: provider,
		Schemas:    schemas,
		Caches:     caches,
		Frameworks: schema.NewFrameworks(store.FrameworkRepository()),
	})
	require.NoError(t, err)

	publisher, _, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	router := sink.NewRouter(logger, publisher, schemas, caches, store.PendingChangeRepository())
	alertService := alerts.NewService(logger, store.AlertRepository())

	return &harness{
		controller: NewController(logger, store, registry, router, alertService, nil, Config{}),
		store:      store,
		provider:   provider,
		caches:     caches,
	}
}

func (h *harness) saveWorkflow(t *testing.T, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, h.store.WorkflowRepository().Save(context.Background(), workflow))
}

func (h *harness) submit(t *testing.T, id, payload string) {
	t.Helper()
	require.NoError(t, h.store.SubmissionRepository().Save(context.Background(), &models.Submission{
		ID:       id,
		TenantID: "tenant-1",
		Source:   "crm",
		Payload:  payload,
	}))
}

func (h *harness) run(t *testing.T, req TriggerRequest) *RunReport {
	t.Helper()

	if req.TenantID == "" {
		req.TenantID = "tenant-1"
	}

	report, err := h.controller.Run(context.Background(), req)
	require.NoError(t, err)

	return report
}

func ingestNode(id string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeIngest, Label: id, Config: models.NodeConfig{Ingest: &models.IngestConfig{}}}
}

func promptNode(id string, parts ...models.PromptPart) *models.Node {
	return &models.Node{
		ID:    id,
		Type:  models.NodeTypePrompt,
		Label: id,
		Config: models.NodeConfig{Prompt: &models.PromptConfig{
			Model: "test-model",
			Parts: parts,
		}},
	}
}

func depPart(nodeID string) models.PromptPart {
	return models.PromptPart{Kind: models.PartKindDependency, NodeID: nodeID}
}

func chainWorkflow() *models.Workflow {
	// ingest -> a -> b
	return &models.Workflow{
		ID:   "wf-1",
		Name: "chain",
		Nodes: []*models.Node{
			ingestNode("ing"),
			promptNode("a", depPart("ing")),
			promptNode("b", depPart("a")),
		},
	}
}

func submissionStatus(t *testing.T, h *harness, id string) models.SubmissionStatus {
	t.Helper()

	submission, err := h.store.SubmissionRepository().GetByID(context.Background(), id)
	require.NoError(t, err)

	return submission.Status
}

func TestRunCacheScenario(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	// First run executes everything.
	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	require.Len(t, report.Workflows, 1)
	assert.ElementsMatch(t, []string{"ing", "a", "b"}, report.Workflows[0].Executed)
	assert.Equal(t, models.SubmissionStatusCompleted, submissionStatus(t, h, "sub-1"))

	// Identical payload: the whole workflow is served from cache.
	h.submit(t, "sub-2", `{"x":1}`)
	report = h.run(t, TriggerRequest{SubmissionID: "sub-2"})

	assert.Empty(t, report.Workflows[0].Executed)
	assert.ElementsMatch(t, []string{"ing", "a", "b"}, report.Workflows[0].Cached)
	assert.Equal(t, 2, h.provider.callCount())

	// Changed payload: everything re-executes.
	h.submit(t, "sub-3", `{"x":2}`)
	report = h.run(t, TriggerRequest{SubmissionID: "sub-3"})

	assert.ElementsMatch(t, []string{"ing", "a", "b"}, report.Workflows[0].Executed)
}

func TestRunTriggerDisabledDependency(t *testing.T) {
	h := newHarness(t)

	quiet := depPart("ing")
	quiet.TriggerDisabled = true

	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "selective",
		Nodes: []*models.Node{
			ingestNode("ing"),
			promptNode("quiet", quiet),
			promptNode("loud", depPart("ing")),
		},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	// New payload dirties the ingest node; only the triggering consumer
	// follows it.
	h.submit(t, "sub-2", `{"x":2}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-2"})

	states := report.Workflows[0].States
	assert.Equal(t, NodeStateExecuted, states["ing"])
	assert.Equal(t, NodeStateExecuted, states["loud"])
	assert.Equal(t, NodeStateCached, states["quiet"])
}

func TestRunPauseContainment(t *testing.T) {
	h := newHarness(t)

	paused := promptNode("a", depPart("ing"))
	paused.Paused = true

	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "paused",
		Nodes: []*models.Node{
			ingestNode("ing"),
			paused,
			promptNode("b", depPart("a")),
			promptNode("c", depPart("ing")),
		},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	states := report.Workflows[0].States
	assert.Equal(t, NodeStateSkippedPaused, states["a"])
	assert.Equal(t, NodeStateSkippedPaused, states["b"])
	assert.Equal(t, NodeStateExecuted, states["ing"])
	assert.Equal(t, NodeStateExecuted, states["c"])
}

func TestRunStopSignalPropagation(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	h.provider.respond = func(req protocol.CompletionRequest) (protocol.CompletionResponse, error) {
		return protocol.CompletionResponse{Text: models.StopSignal, FinishReason: protocol.FinishReasonStop}, nil
	}

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	// Node a called the provider and emitted the sentinel; node b
	// propagated it without a call.
	assert.Equal(t, 1, h.provider.callCount())

	record, err := h.store.NodeOutputRepository().Get(context.Background(), "tenant-1", "wf-1", "b")
	require.NoError(t, err)
	assert.Equal(t, models.StopSignal, record.Output)
	assert.Equal(t, NodeStateExecuted, report.Workflows[0].States["b"])
}

func TestRunPartialStart(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "partial",
		Nodes: []*models.Node{
			ingestNode("ing"),
			promptNode("a", depPart("ing")),
			promptNode("b", depPart("a")),
			promptNode("c", depPart("ing")),
		},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	h.submit(t, "sub-2", `{"x":1}`)
	report := h.run(t, TriggerRequest{
		SubmissionID:    "sub-2",
		WorkflowID:      "wf-1",
		StartFromNodeID: "a",
		Force:           true,
	})

	states := report.Workflows[0].States
	assert.Equal(t, NodeStateSkippedOutOfScope, states["ing"])
	assert.Equal(t, NodeStateSkippedOutOfScope, states["c"])
	assert.Equal(t, NodeStateExecuted, states["a"])
	assert.Equal(t, NodeStateExecuted, states["b"])
}

func TestRunPartialStartLeavesOtherWorkflowsUnrestricted(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())
	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-2",
		Name: "sibling",
		Nodes: []*models.Node{
			ingestNode("ing2"),
			promptNode("x", depPart("ing2")),
		},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{
		SubmissionID:    "sub-1",
		StartFromNodeID: "a",
		Force:           true,
	})

	byID := make(map[string]WorkflowReport, len(report.Workflows))
	for _, wf := range report.Workflows {
		byID[wf.WorkflowID] = wf
	}

	// wf-1 contains the start node, so the restriction binds there.
	states := byID["wf-1"].States
	assert.Equal(t, NodeStateSkippedOutOfScope, states["ing"])
	assert.Equal(t, NodeStateExecuted, states["a"])
	assert.Equal(t, NodeStateExecuted, states["b"])

	// wf-2 does not, so it runs in full.
	states = byID["wf-2"].States
	assert.Equal(t, NodeStateExecuted, states["ing2"])
	assert.Equal(t, NodeStateExecuted, states["x"])
}

func TestRunFailurePolicy(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	h.provider.respond = func(req protocol.CompletionRequest) (protocol.CompletionResponse, error) {
		if strings.Contains(req.Messages[0].Content, `{"x":1}`) {
			return protocol.CompletionResponse{}, errors.New("provider exploded")
		}

		return protocol.CompletionResponse{Text: "recovered", FinishReason: protocol.FinishReasonStop}, nil
	}

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	states := report.Workflows[0].States
	assert.Equal(t, NodeStateFailed, states["a"])
	assert.Equal(t, NodeStateExecuted, states["b"])

	record, err := h.store.NodeOutputRepository().Get(context.Background(), "tenant-1", "wf-1", "a")
	require.NoError(t, err)
	assert.True(t, models.IsErrorMarker(record.Output))

	// Best-effort policy: submissions complete despite in-cascade failures.
	assert.Equal(t, models.SubmissionStatusCompleted, submissionStatus(t, h, "sub-1"))

	alertList, err := h.store.AlertRepository().List(context.Background(), 0)
	require.NoError(t, err)

	var types []models.AlertType
	for _, alert := range alertList {
		types = append(types, alert.Type)
	}

	assert.Contains(t, types, models.AlertTypeModelError)
}

func TestRunModelNotFoundAlert(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	h.provider.respond = func(protocol.CompletionRequest) (protocol.CompletionResponse, error) {
		return protocol.CompletionResponse{}, fmt.Errorf("completion failed: %w", protocol.ErrModelNotFound)
	}

	h.submit(t, "sub-1", `{"x":1}`)
	h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	alertList, err := h.store.AlertRepository().List(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, alertList)

	var found bool

	for _, alert := range alertList {
		if alert.Type == models.AlertTypeModelNotFound {
			found = true
		}
	}

	assert.True(t, found)
}

func TestRunCrossWorkflowCascadeWithVisitedGuard(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-1",
		Name: "upstream",
		Nodes: []*models.Node{
			ingestNode("ing1"),
			promptNode("a", depPart("ing1")),
			// Depends back on the downstream workflow: without the visited
			// guard this chain would never terminate.
			promptNode("z", models.PromptPart{Kind: models.PartKindDependency, NodeID: "x", WorkflowID: "wf-2"}),
		},
	})
	h.saveWorkflow(t, &models.Workflow{
		ID:   "wf-2",
		Name: "downstream",
		Settings: models.WorkflowSettings{
			DataTags: []string{"other-source"},
		},
		Nodes: []*models.Node{
			ingestNode("ing2"),
			promptNode("x", models.PromptPart{Kind: models.PartKindDependency, NodeID: "a", WorkflowID: "wf-1"}),
		},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	require.Len(t, report.Workflows, 2)

	byID := make(map[string]WorkflowReport)
	for _, wf := range report.Workflows {
		byID[wf.WorkflowID] = wf
	}

	assert.False(t, byID["wf-1"].Cascaded)
	assert.True(t, byID["wf-2"].Cascaded)
	assert.Contains(t, byID["wf-2"].Executed, "x")

	// The downstream node resolved the upstream output through the store.
	record, err := h.store.NodeOutputRepository().Get(context.Background(), "tenant-1", "wf-2", "x")
	require.NoError(t, err)
	assert.NotEmpty(t, record.Output)
}

func TestRunTriggerRehydration(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	h.submit(t, "sub-1", `{"x":1}`)
	h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	h.submit(t, "sub-2", models.TriggerMarker)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-2"})

	// The trigger rehydrated to the previous payload, so everything is
	// cached.
	assert.ElementsMatch(t, []string{"ing", "a", "b"}, report.Workflows[0].Cached)
	assert.Equal(t, models.SubmissionStatusCompleted, submissionStatus(t, h, "sub-2"))
}

func TestRunSyncCounts(t *testing.T) {
	h := newHarness(t)

	synced := promptNode("a", depPart("ing"))
	synced.Sync = models.SyncSettings{
		Destinations: []models.SyncDestination{models.SyncPlatformA, models.SyncSharedCache},
		CacheName:    "summaries",
	}

	h.saveWorkflow(t, &models.Workflow{
		ID:    "wf-1",
		Name:  "synced",
		Nodes: []*models.Node{ingestNode("ing"), synced},
	})

	h.submit(t, "sub-1", `{"x":1}`)
	report := h.run(t, TriggerRequest{SubmissionID: "sub-1"})

	assert.Equal(t, 1, report.Synced[models.SyncPlatformA])
	assert.Equal(t, 1, report.Synced[models.SyncSharedCache])
	assert.Len(t, h.caches.entries["tenant-1/summaries"], 1)
}

func TestRunSubmissionNotFound(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	_, err := h.controller.Run(context.Background(), TriggerRequest{
		TenantID:     "tenant-1",
		SubmissionID: "missing",
	})

	assert.Error(t, err)
}

func TestRunPendingSweep(t *testing.T) {
	h := newHarness(t)
	h.saveWorkflow(t, chainWorkflow())

	h.submit(t, "sub-1", `{"x":1}`)
	h.submit(t, "sub-2", `{"x":2}`)

	reports, err := h.controller.RunPending(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, models.SubmissionStatusCompleted, submissionStatus(t, h, "sub-1"))
	assert.Equal(t, models.SubmissionStatusCompleted, submissionStatus(t, h, "sub-2"))

	// A second sweep finds nothing pending.
	reports, err = h.controller.RunPending(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, reports)
}
