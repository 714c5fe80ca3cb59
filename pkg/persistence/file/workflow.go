package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow file operations.
type WorkflowRepository struct {
	store *Persistence
}

func (r *WorkflowRepository) dir() string {
	return filepath.Join(r.store.root, "workflows")
}

// GetAll returns every stored workflow.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		if workflow.DeletedAt == nil {
			workflows = append(workflows, workflow)
		}
	}

	return workflows, nil
}

// GetByID returns one workflow or persistence.ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := readJSON(filepath.Join(r.dir(), id+".json"), &workflow)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWorkflowNotFound
	}

	return &workflow, nil
}

// Save stores a workflow, assigning an id and timestamps when missing.
func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	return writeJSON(filepath.Join(r.dir(), workflow.ID+".json"), workflow)
}

// Delete soft deletes a workflow by setting its deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil
		}

		return err
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now

	return r.Save(ctx, workflow)
}
