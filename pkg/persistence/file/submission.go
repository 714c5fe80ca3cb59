package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
	"github.com/google/uuid"
)

// SubmissionRepository handles submission file operations.
type SubmissionRepository struct {
	store *Persistence
}

func (r *SubmissionRepository) dir() string {
	return filepath.Join(r.store.root, "submissions")
}

// GetByID returns one submission or persistence.ErrSubmissionNotFound.
func (r *SubmissionRepository) GetByID(_ context.Context, id string) (*models.Submission, error) {
	var submission models.Submission

	found, err := readJSON(filepath.Join(r.dir(), id+".json"), &submission)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrSubmissionNotFound
	}

	return &submission, nil
}

// Save stores a submission, assigning an id and timestamps when missing.
func (r *SubmissionRepository) Save(_ context.Context, submission *models.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

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

	return writeJSON(filepath.Join(r.dir(), submission.ID+".json"), submission)
}

func (r *SubmissionRepository) all(ctx context.Context) ([]*models.Submission, error) {
	ids, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	submissions := make([]*models.Submission, 0, len(ids))

	for _, id := range ids {
		submission, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		submissions = append(submissions, submission)
	}

	sort.Slice(submissions, func(i, j int) bool {
		return submissions[i].CreatedAt.Before(submissions[j].CreatedAt)
	})

	return submissions, nil
}

// LatestWithData returns the tenant's most recent submission with a real
// payload, or persistence.ErrSubmissionNotFound.
func (r *SubmissionRepository) LatestWithData(ctx context.Context, tenantID string) (*models.Submission, error) {
	submissions, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(submissions) - 1; i >= 0; i-- {
		s := submissions[i]
		if s.TenantID == tenantID && !s.TriggerOnly() {
			return s, nil
		}
	}

	return nil, persistence.ErrSubmissionNotFound
}

// ListPending returns pending submissions across all tenants, oldest first.
func (r *SubmissionRepository) ListPending(ctx context.Context) ([]*models.Submission, error) {
	submissions, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.Submission, 0)

	for _, s := range submissions {
		if s.Status == models.SubmissionStatusPending {
			pending = append(pending, s)
		}
	}

	return pending, nil
}
