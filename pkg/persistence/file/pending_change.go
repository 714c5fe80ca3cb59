package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// PendingChangeRepository stores the shared-schema approval queue.
type PendingChangeRepository struct {
	store *Persistence
}

func (r *PendingChangeRepository) dir() string {
	return filepath.Join(r.store.root, "pending_changes")
}

// Create stores a new pending change.
func (r *PendingChangeRepository) Create(_ context.Context, change *models.PendingChange) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if change.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate pending change ID: %w", err)
		}

		change.ID = id.String()
	}

	now := time.Now().UTC()
	change.CreatedAt = now
	change.UpdatedAt = now

	if change.Status == "" {
		change.Status = models.PendingChangeStatusPending
	}

	return writeJSON(filepath.Join(r.dir(), change.ID+".json"), change)
}

// ListByStatus returns a tenant's changes in the given status, oldest first.
func (r *PendingChangeRepository) ListByStatus(_ context.Context, tenantID string, status models.PendingChangeStatus) ([]*models.PendingChange, error) {
	ids, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}

	changes := make([]*models.PendingChange, 0)

	for _, id := range ids {
		var change models.PendingChange

		if _, err := readJSON(filepath.Join(r.dir(), id+".json"), &change); err != nil {
			return nil, err
		}

		if change.TenantID == tenantID && change.Status == status {
			changes = append(changes, &change)
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})

	return changes, nil
}

// UpdateStatus advances the approval lifecycle of one change.
func (r *PendingChangeRepository) UpdateStatus(_ context.Context, id string, status models.PendingChangeStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	path := filepath.Join(r.dir(), id+".json")

	var change models.PendingChange

	found, err := readJSON(path, &change)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrPendingChangeNotFound
	}

	change.Status = status
	change.UpdatedAt = time.Now().UTC()

	return writeJSON(path, &change)
}
