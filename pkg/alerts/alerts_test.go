package alerts

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAlertRepo struct {
	byKey map[string]*models.Alert
	fail  bool
}

func newMemoryAlertRepo() *memoryAlertRepo {
	return &memoryAlertRepo{byKey: make(map[string]*models.Alert)}
}

func (r *memoryAlertRepo) Upsert(_ context.Context, alert *models.Alert) error {
	if r.fail {
		return errors.New("storage down")
	}

	key := alert.DedupKey()

	if existing, ok := r.byKey[key]; ok {
		existing.Occurrences++
		existing.LastSeenAt = alert.LastSeenAt

		return nil
	}

	stored := *alert
	r.byKey[key] = &stored

	return nil
}

func (r *memoryAlertRepo) List(_ context.Context, _ int) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0, len(r.byKey))
	for _, alert := range r.byKey {
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

func TestRaiseDeduplicates(t *testing.T) {
	repo := newMemoryAlertRepo()
	service := NewService(slog.Default(), repo)
	ctx := context.Background()

	service.ModelNotFound(ctx, "tenant-1", "wf-1", "node-1", "gpt-x")
	service.ModelNotFound(ctx, "tenant-1", "wf-1", "node-1", "gpt-x")
	service.ModelNotFound(ctx, "tenant-1", "wf-1", "node-2", "gpt-x")

	alerts, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	for _, alert := range alerts {
		if alert.Scope["node_id"] == "node-1" {
			assert.Equal(t, 2, alert.Occurrences)
		} else {
			assert.Equal(t, 1, alert.Occurrences)
		}
	}
}

func TestRaiseSwallowsStorageErrors(t *testing.T) {
	repo := newMemoryAlertRepo()
	repo.fail = true
	service := NewService(slog.Default(), repo)

	assert.NotPanics(t, func() {
		service.Truncation(context.Background(), "tenant-1", "wf-1", "node-1", 1024)
	})
}

func TestDedupKeyOrderIndependent(t *testing.T) {
	a := &models.Alert{
		Type:  models.AlertTypeLowQuality,
		Scope: map[string]string{"tenant_id": "t", "node_id": "n", "workflow_id": "w"},
	}
	b := &models.Alert{
		Type:  models.AlertTypeLowQuality,
		Scope: map[string]string{"workflow_id": "w", "tenant_id": "t", "node_id": "n"},
	}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
}
