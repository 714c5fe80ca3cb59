package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// PendingChangeRepository stores the shared-schema approval queue.
type PendingChangeRepository struct {
	db *sql.DB
}

// Create stores a new pending change.
func (r *PendingChangeRepository) Create(ctx context.Context, change *models.PendingChange) error {
	if change.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate pending change ID: %w", err)
		}

		change.ID = id.String()
	}

	if change.Status == "" {
		change.Status = models.PendingChangeStatusPending
	}

	now := time.Now().UTC()
	change.CreatedAt = now
	change.UpdatedAt = now

	provenanceJSON, err := json.Marshal(change.Provenance)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}

	query := `
		INSERT INTO pending_changes (id, tenant_id, domain, level, path, value, provenance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		change.ID, change.TenantID, change.Domain, change.Level, change.Path,
		change.Value, provenanceJSON, change.Status, change.CreatedAt, change.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pending change: %w", err)
	}

	return nil
}

// ListByStatus returns a tenant's changes in the given status, oldest first.
func (r *PendingChangeRepository) ListByStatus(ctx context.Context, tenantID string, status models.PendingChangeStatus) ([]*models.PendingChange, error) {
	query := `
		SELECT id, tenant_id, domain, level, path, value, provenance, status, created_at, updated_at
		FROM pending_changes
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	changes := make([]*models.PendingChange, 0)

	for rows.Next() {
		var (
			change         models.PendingChange
			provenanceJSON []byte
		)

		err := rows.Scan(
			&change.ID, &change.TenantID, &change.Domain, &change.Level, &change.Path,
			&change.Value, &provenanceJSON, &change.Status, &change.CreatedAt, &change.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending change: %w", err)
		}

		if err := json.Unmarshal(provenanceJSON, &change.Provenance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provenance: %w", err)
		}

		changes = append(changes, &change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending changes: %w", err)
	}

	return changes, nil
}

// UpdateStatus advances the approval lifecycle of one change.
func (r *PendingChangeRepository) UpdateStatus(ctx context.Context, id string, status models.PendingChangeStatus) error {
	query := `UPDATE pending_changes SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update pending change: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrPendingChangeNotFound
	}

	return nil
}
