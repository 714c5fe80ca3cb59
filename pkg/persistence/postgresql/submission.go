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

// SubmissionRepository handles submission database operations.
type SubmissionRepository struct {
	db *sql.DB
}

const submissionColumns = `id, tenant_id, source, payload, status, created_at, updated_at`

// GetByID returns one submission or persistence.ErrSubmissionNotFound.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	submission, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSubmissionNotFound
		}

		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	return submission, nil
}

// Save upserts a submission.
func (r *SubmissionRepository) Save(ctx context.Context, submission *models.Submission) error {
	now := time.Now().UTC()

	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}

	submission.UpdatedAt = now

	if submission.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate submission ID: %w", err)
		}

		submission.ID = id.String()
	}

	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}

	query := `
		INSERT INTO submissions (id, tenant_id, source, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			payload = EXCLUDED.payload,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		submission.ID,
		submission.TenantID,
		submission.Source,
		submission.Payload,
		submission.Status,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

// LatestWithData returns the tenant's most recent submission with a real
// payload.
func (r *SubmissionRepository) LatestWithData(ctx context.Context, tenantID string) (*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE tenant_id = $1 AND payload <> '' AND payload <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	submission, err := scanSubmission(r.db.QueryRowContext(ctx, query, tenantID, models.TriggerMarker))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSubmissionNotFound
		}

		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	return submission, nil
}

// ListPending returns pending submissions across all tenants, oldest first.
func (r *SubmissionRepository) ListPending(ctx context.Context) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE status = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, models.SubmissionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending submissions: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	submissions := make([]*models.Submission, 0)

	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		submissions = append(submissions, submission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

func scanSubmission(scanner interface {
	Scan(dest ...any) error
}) (*models.Submission, error) {
	var submission models.Submission

	err := scanner.Scan(
		&submission.ID,
		&submission.TenantID,
		&submission.Source,
		&submission.Payload,
		&submission.Status,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &submission, nil
}
