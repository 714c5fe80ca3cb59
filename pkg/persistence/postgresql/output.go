package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
)

// NodeOutputRepository handles node output records keyed by
// (tenant, workflow, node).
type NodeOutputRepository struct {
	db *sql.DB
}

const outputColumns = `tenant_id, workflow_id, node_id, output, content_hash,
	dependency_hashes, version, evaluation, low_quality_fields, executed_at, created_at, updated_at`

// Get returns one record or persistence.ErrNodeOutputNotFound.
func (r *NodeOutputRepository) Get(ctx context.Context, tenantID, workflowID, nodeID string) (*models.NodeOutputRecord, error) {
	query := `SELECT ` + outputColumns + ` FROM node_outputs
		WHERE tenant_id = $1 AND workflow_id = $2 AND node_id = $3`

	record, err := scanOutput(r.db.QueryRowContext(ctx, query, tenantID, workflowID, nodeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNodeOutputNotFound
		}

		return nil, fmt.Errorf("failed to scan node output: %w", err)
	}

	return record, nil
}

// ListByWorkflow returns every record for a tenant's workflow.
func (r *NodeOutputRepository) ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]*models.NodeOutputRecord, error) {
	query := `SELECT ` + outputColumns + ` FROM node_outputs
		WHERE tenant_id = $1 AND workflow_id = $2`

	rows, err := r.db.QueryContext(ctx, query, tenantID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node outputs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	records := make([]*models.NodeOutputRecord, 0)

	for rows.Next() {
		record, err := scanOutput(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node output: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node outputs: %w", err)
	}

	return records, nil
}

// Upsert writes a record guarded by a version compare-and-swap: the insert
// only applies when no row exists and expectedVersion is zero, the update
// only when the stored version still equals expectedVersion. No row
// affected means a concurrent writer won.
func (r *NodeOutputRepository) Upsert(ctx context.Context, record *models.NodeOutputRecord, expectedVersion int) error {
	depHashesJSON, err := json.Marshal(record.DependencyHashes)
	if err != nil {
		return fmt.Errorf("failed to marshal dependency hashes: %w", err)
	}

	var evaluationJSON, lowQualityJSON []byte

	if record.Evaluation != nil {
		evaluationJSON, err = json.Marshal(record.Evaluation)
		if err != nil {
			return fmt.Errorf("failed to marshal evaluation: %w", err)
		}
	}

	if record.LowQualityFields != nil {
		lowQualityJSON, err = json.Marshal(record.LowQualityFields)
		if err != nil {
			return fmt.Errorf("failed to marshal low quality fields: %w", err)
		}
	}

	now := time.Now().UTC()
	record.Version = expectedVersion + 1
	record.UpdatedAt = now

	if expectedVersion == 0 {
		record.CreatedAt = now

		query := `
			INSERT INTO node_outputs (` + outputColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (tenant_id, workflow_id, node_id) DO NOTHING
		`

		result, err := r.db.ExecContext(ctx, query,
			record.TenantID, record.WorkflowID, record.NodeID,
			record.Output, record.ContentHash, depHashesJSON, record.Version,
			evaluationJSON, lowQualityJSON,
			record.ExecutedAt, record.CreatedAt, record.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert node output: %w", err)
		}

		return checkConflict(result, record.NodeID, expectedVersion)
	}

	query := `
		UPDATE node_outputs SET
			output = $4,
			content_hash = $5,
			dependency_hashes = $6,
			version = $7,
			evaluation = $8,
			low_quality_fields = $9,
			executed_at = $10,
			updated_at = $11
		WHERE tenant_id = $1 AND workflow_id = $2 AND node_id = $3 AND version = $12
	`

	result, err := r.db.ExecContext(ctx, query,
		record.TenantID, record.WorkflowID, record.NodeID,
		record.Output, record.ContentHash, depHashesJSON, record.Version,
		evaluationJSON, lowQualityJSON,
		record.ExecutedAt, record.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update node output: %w", err)
	}

	return checkConflict(result, record.NodeID, expectedVersion)
}

// Reset deletes every record for a tenant's workflow.
func (r *NodeOutputRepository) Reset(ctx context.Context, tenantID, workflowID string) error {
	query := `DELETE FROM node_outputs WHERE tenant_id = $1 AND workflow_id = $2`

	_, err := r.db.ExecContext(ctx, query, tenantID, workflowID)
	if err != nil {
		return fmt.Errorf("failed to reset node outputs: %w", err)
	}

	return nil
}

func checkConflict(result sql.Result, nodeID string, expectedVersion int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("node %s no longer at version %d: %w",
			nodeID, expectedVersion, persistence.ErrVersionConflict)
	}

	return nil
}

func scanOutput(scanner interface {
	Scan(dest ...any) error
}) (*models.NodeOutputRecord, error) {
	var (
		record                                   models.NodeOutputRecord
		depHashesJSON, evaluationJSON, lowQJSON []byte
	)

	err := scanner.Scan(
		&record.TenantID,
		&record.WorkflowID,
		&record.NodeID,
		&record.Output,
		&record.ContentHash,
		&depHashesJSON,
		&record.Version,
		&evaluationJSON,
		&lowQJSON,
		&record.ExecutedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(depHashesJSON, &record.DependencyHashes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dependency hashes: %w", err)
	}

	if evaluationJSON != nil {
		if err := json.Unmarshal(evaluationJSON, &record.Evaluation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
		}
	}

	if lowQJSON != nil {
		if err := json.Unmarshal(lowQJSON, &record.LowQualityFields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal low quality fields: %w", err)
		}
	}

	return &record, nil
}
