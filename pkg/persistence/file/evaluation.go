package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cascadehq/cascade/pkg/models"
)

// EvaluationRepository stores rolling per-node evaluation history, one file
// per (tenant, workflow, node).
type EvaluationRepository struct {
	store *Persistence
}

func (r *EvaluationRepository) path(tenantID, workflowID, nodeID string) string {
	return filepath.Join(r.store.root, "evaluations", tenantID, workflowID, nodeID+".json")
}

// Append adds a record and trims the history to the retention bound.
func (r *EvaluationRepository) Append(ctx context.Context, tenantID, workflowID, nodeID string, record *models.EvaluationRecord, retention int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var history []*models.EvaluationRecord

	path := r.path(tenantID, workflowID, nodeID)

	if _, err := readJSON(path, &history); err != nil {
		return fmt.Errorf("failed to load evaluation history: %w", err)
	}

	history = append(history, record)

	if retention > 0 && len(history) > retention {
		history = history[len(history)-retention:]
	}

	return writeJSON(path, history)
}

// History returns the retained records, oldest first.
func (r *EvaluationRepository) History(_ context.Context, tenantID, workflowID, nodeID string) ([]*models.EvaluationRecord, error) {
	var history []*models.EvaluationRecord

	if _, err := readJSON(r.path(tenantID, workflowID, nodeID), &history); err != nil {
		return nil, fmt.Errorf("failed to load evaluation history: %w", err)
	}

	return history, nil
}
