package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// FrameworkRepository stores scoring/rubric artifacts.
type FrameworkRepository struct {
	db *sql.DB
}

// GetByID returns one framework or persistence.ErrFrameworkNotFound.
func (r *FrameworkRepository) GetByID(ctx context.Context, id string) (*models.Framework, error) {
	query := `SELECT id, name, description, schema, created_at, updated_at FROM frameworks WHERE id = $1`

	var framework models.Framework

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&framework.ID, &framework.Name, &framework.Description,
		&framework.Schema, &framework.CreatedAt, &framework.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrFrameworkNotFound
		}

		return nil, fmt.Errorf("failed to scan framework: %w", err)
	}

	return &framework, nil
}

// Save upserts a framework.
func (r *FrameworkRepository) Save(ctx context.Context, framework *models.Framework) error {
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

	query := `
		INSERT INTO frameworks (id, name, description, schema, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			schema = EXCLUDED.schema,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		framework.ID, framework.Name, framework.Description,
		framework.Schema, framework.CreatedAt, framework.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save framework: %w", err)
	}

	return nil
}
