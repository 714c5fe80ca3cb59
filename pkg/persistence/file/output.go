package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
)

// NodeOutputRepository stores one record per (tenant, workflow, node).
type NodeOutputRepository struct {
	store *Persistence
}

func (r *NodeOutputRepository) dir(tenantID, workflowID string) string {
	return filepath.Join(r.store.root, "outputs", tenantID, workflowID)
}

// Get returns one record or persistence.ErrNodeOutputNotFound.
func (r *NodeOutputRepository) Get(_ context.Context, tenantID, workflowID, nodeID string) (*models.NodeOutputRecord, error) {
	var record models.NodeOutputRecord

	found, err := readJSON(filepath.Join(r.dir(tenantID, workflowID), nodeID+".json"), &record)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrNodeOutputNotFound
	}

	return &record, nil
}

// ListByWorkflow returns every record for a tenant's workflow.
func (r *NodeOutputRepository) ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]*models.NodeOutputRecord, error) {
	nodeIDs, err := listJSONFiles(r.dir(tenantID, workflowID))
	if err != nil {
		return nil, fmt.Errorf("failed to list node outputs: %w", err)
	}

	records := make([]*models.NodeOutputRecord, 0, len(nodeIDs))

	for _, nodeID := range nodeIDs {
		record, err := r.Get(ctx, tenantID, workflowID, nodeID)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// Upsert writes a record guarded by a version compare-and-swap. The mutex
// makes read-check-write atomic within this process.
func (r *NodeOutputRepository) Upsert(ctx context.Context, record *models.NodeOutputRecord, expectedVersion int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, err := r.Get(ctx, record.TenantID, record.WorkflowID, record.NodeID)

	switch {
	case err == nil:
		if current.Version != expectedVersion {
			return fmt.Errorf("node %s at version %d, expected %d: %w",
				record.NodeID, current.Version, expectedVersion, persistence.ErrVersionConflict)
		}

		record.CreatedAt = current.CreatedAt
	case persistence.IsNotFound(err):
		if expectedVersion != 0 {
			return fmt.Errorf("node %s has no record, expected version %d: %w",
				record.NodeID, expectedVersion, persistence.ErrVersionConflict)
		}

		record.CreatedAt = time.Now().UTC()
	default:
		return err
	}

	record.Version = expectedVersion + 1
	record.UpdatedAt = time.Now().UTC()

	path := filepath.Join(r.dir(record.TenantID, record.WorkflowID), record.NodeID+".json")

	return writeJSON(path, record)
}

// Reset deletes every record for a tenant's workflow.
func (r *NodeOutputRepository) Reset(_ context.Context, tenantID, workflowID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := os.RemoveAll(r.dir(tenantID, workflowID)); err != nil {
		return fmt.Errorf("failed to reset node outputs: %w", err)
	}

	return nil
}
