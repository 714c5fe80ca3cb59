package file_test

import (
	"context"
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/cascadehq/cascade/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeOutputUpsertVersioning(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	outputs := store.NodeOutputRepository()
	ctx := context.Background()

	record := &models.NodeOutputRecord{
		TenantID:    "t1",
		WorkflowID:  "wf",
		NodeID:      "n",
		Output:      "first",
		ContentHash: "h1",
	}

	require.NoError(t, outputs.Upsert(ctx, record, 0))
	assert.Equal(t, 1, record.Version)

	stored, err := outputs.Get(ctx, "t1", "wf", "n")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Output)
	assert.False(t, stored.CreatedAt.IsZero())

	// A stale expected version is rejected.
	stale := &models.NodeOutputRecord{TenantID: "t1", WorkflowID: "wf", NodeID: "n", Output: "second"}
	err = outputs.Upsert(ctx, stale, 0)
	assert.True(t, persistence.IsVersionConflict(err))

	// The current version succeeds and bumps.
	fresh := &models.NodeOutputRecord{TenantID: "t1", WorkflowID: "wf", NodeID: "n", Output: "second"}
	require.NoError(t, outputs.Upsert(ctx, fresh, 1))
	assert.Equal(t, 2, fresh.Version)
	assert.Equal(t, stored.CreatedAt, fresh.CreatedAt)
}

func TestNodeOutputUpsertFirstWriteRequiresZero(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	record := &models.NodeOutputRecord{TenantID: "t1", WorkflowID: "wf", NodeID: "n", Output: "x"}
	err := store.NodeOutputRepository().Upsert(context.Background(), record, 3)
	assert.True(t, persistence.IsVersionConflict(err))
}

func TestNodeOutputReset(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	outputs := store.NodeOutputRepository()
	ctx := context.Background()

	require.NoError(t, outputs.Upsert(ctx, &models.NodeOutputRecord{
		TenantID: "t1", WorkflowID: "wf", NodeID: "a", Output: "x",
	}, 0))
	require.NoError(t, outputs.Upsert(ctx, &models.NodeOutputRecord{
		TenantID: "t1", WorkflowID: "wf", NodeID: "b", Output: "y",
	}, 0))

	require.NoError(t, outputs.Reset(ctx, "t1", "wf"))

	records, err := outputs.ListByWorkflow(ctx, "t1", "wf")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAlertUpsertDedup(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	alerts := store.AlertRepository()
	ctx := context.Background()

	scope := map[string]string{"workflow_id": "wf", "node_id": "n"}

	first := &models.Alert{
		Type:     models.AlertTypeTruncation,
		Scope:    scope,
		Severity: models.AlertSeverityWarning,
		Title:    "output truncated",
	}
	require.NoError(t, alerts.Upsert(ctx, first))
	assert.Equal(t, 1, first.Occurrences)
	assert.NotEmpty(t, first.ID)

	again := &models.Alert{
		Type:     models.AlertTypeTruncation,
		Scope:    scope,
		Severity: models.AlertSeverityWarning,
		Title:    "output truncated",
	}
	require.NoError(t, alerts.Upsert(ctx, again))
	assert.Equal(t, 2, again.Occurrences)
	assert.Equal(t, first.ID, again.ID)

	list, err := alerts.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Occurrences)
}

func TestSubmissionLifecycle(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	submissions := store.SubmissionRepository()
	ctx := context.Background()

	submission := &models.Submission{TenantID: "t1", Source: "crm", Payload: `{"x":1}`}
	require.NoError(t, submissions.Save(ctx, submission))
	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, models.SubmissionStatusPending, submission.Status)

	pending, err := submissions.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	submission.Status = models.SubmissionStatusCompleted
	require.NoError(t, submissions.Save(ctx, submission))

	pending, err = submissions.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLatestWithDataSkipsTriggers(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	submissions := store.SubmissionRepository()
	ctx := context.Background()

	require.NoError(t, submissions.Save(ctx, &models.Submission{ID: "s1", TenantID: "t1", Payload: `{"x":1}`}))
	require.NoError(t, submissions.Save(ctx, &models.Submission{ID: "s2", TenantID: "t1", Payload: models.TriggerMarker}))
	require.NoError(t, submissions.Save(ctx, &models.Submission{ID: "s3", TenantID: "other", Payload: `{"y":2}`}))

	latest, err := submissions.LatestWithData(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "s1", latest.ID)

	_, err = submissions.LatestWithData(ctx, "unknown")
	assert.True(t, persistence.IsNotFound(err))
}

func TestWorkflowSoftDelete(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	workflows := store.WorkflowRepository()
	ctx := context.Background()

	require.NoError(t, workflows.Save(ctx, &models.Workflow{ID: "wf", Name: "example"}))
	require.NoError(t, workflows.Delete(ctx, "wf"))

	workflow, err := workflows.GetByID(ctx, "wf")
	require.NoError(t, err)
	assert.NotNil(t, workflow.DeletedAt)

	_, err = workflows.GetByID(ctx, "missing")
	assert.True(t, persistence.IsNotFound(err))
}

func TestFieldDefsOrderedByLevelThenPath(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())
	schemas := store.SchemaRepository()
	ctx := context.Background()

	// Saved interleaved across levels; reads must come back grouped.
	for _, def := range []*models.SchemaFieldDef{
		{Domain: "customer", Level: "deal", Path: "stage"},
		{Domain: "customer", Level: "company", Path: "industry"},
		{Domain: "customer", Level: "deal", Path: "amount"},
		{Domain: "customer", Level: "company", Path: "headcount"},
	} {
		require.NoError(t, schemas.SaveFieldDef(ctx, def))
	}

	defs, err := schemas.FieldDefs(ctx, "customer")
	require.NoError(t, err)
	require.Len(t, defs, 4)

	got := make([][2]string, 0, len(defs))
	for _, def := range defs {
		got = append(got, [2]string{def.Level, def.Path})
	}

	assert.Equal(t, [][2]string{
		{"company", "headcount"},
		{"company", "industry"},
		{"deal", "amount"},
		{"deal", "stage"},
	}, got)
}
