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

// FrameworkRepository stores scoring/rubric artifacts.
type FrameworkRepository struct {
	store *Persistence
}

func (r *FrameworkRepository) dir() string {
	return filepath.Join(r.store.root, "frameworks")
}

// GetByID returns one framework or persistence.ErrFrameworkNotFound.
func (r *FrameworkRepository) GetByID(_ context.Context, id string) (*models.Framework, error) {
	var framework models.Framework

	found, err := readJSON(filepath.Join(r.dir(), id+".json"), &framework)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrFrameworkNotFound
	}

	return &framework, nil
}

// Save stores a framework, assigning an id and timestamps when missing.
func (r *FrameworkRepository) Save(_ context.Context, framework *models.Framework) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()

	if framework.CreatedAt.IsZero() {
		framework.CreatedAt = now
	}

	framework.UpdatedAt = now

	if framework.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate framework ID: %w", err)
		}

		framework.ID = id.String()
	}

	return writeJSON(filepath.Join(r.dir(), framework.ID+".json"), framework)
}
