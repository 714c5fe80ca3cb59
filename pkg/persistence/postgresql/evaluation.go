package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cascadehq/cascade/pkg/models"
)

// EvaluationRepository stores rolling per-node evaluation history.
type EvaluationRepository struct {
	db *sql.DB
}

// Append adds a record and trims the node's history to the retention bound.
func (r *EvaluationRepository) Append(ctx context.Context, tenantID, workflowID, nodeID string, record *models.EvaluationRecord, retention int) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation record: %w", err)
	}

	insertQuery := `
		INSERT INTO evaluations (tenant_id, workflow_id, node_id, record)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.db.ExecContext(ctx, insertQuery, tenantID, workflowID, nodeID, recordJSON)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation record: %w", err)
	}

	if retention <= 0 {
		return nil
	}

	trimQuery := `
		DELETE FROM evaluations
		WHERE tenant_id = $1 AND workflow_id = $2 AND node_id = $3
		AND id NOT IN (
			SELECT id FROM evaluations
			WHERE tenant_id = $1 AND workflow_id = $2 AND node_id = $3
			ORDER BY id DESC
			LIMIT $4
		)
	`

	_, err = r.db.ExecContext(ctx, trimQuery, tenantID, workflowID, nodeID, retention)
	if err != nil {
		return fmt.Errorf("failed to trim evaluation history: %w", err)
	}

	return nil
}

// History returns the node's evaluation records, oldest first.
func (r *EvaluationRepository) History(ctx context.Context, tenantID, workflowID, nodeID string) ([]*models.EvaluationRecord, error) {
	query := `
		SELECT record FROM evaluations
		WHERE tenant_id = $1 AND workflow_id = $2 AND node_id = $3
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, workflowID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation history: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	records := make([]*models.EvaluationRecord, 0)

	for rows.Next() {
		var recordJSON []byte

		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation record: %w", err)
		}

		var record models.EvaluationRecord

		if err := json.Unmarshal(recordJSON, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation record: %w", err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation history: %w", err)
	}

	return records, nil
}
