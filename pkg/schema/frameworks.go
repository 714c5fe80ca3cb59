package schema

import (
	"context"
	"fmt"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
)

// Frameworks resolves stored scoring/rubric artifacts for framework nodes.
type Frameworks struct {
	repo persistence.FrameworkRepository
}

func NewFrameworks(repo persistence.FrameworkRepository) *Frameworks {
	return &Frameworks{repo: repo}
}

func (f *Frameworks) FrameworkByID(ctx context.Context, id string) (*models.Framework, error) {
	framework, err := f.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load framework %s: %w", id, err)
	}

	return framework, nil
}
