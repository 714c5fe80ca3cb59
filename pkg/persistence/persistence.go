// Package persistence provides the data storage abstraction for workflows,
// submissions, node outputs, and the engine's operational records.
package persistence

import (
	"context"

	"github.com/cascadehq/cascade/pkg/models"
)

// Persistence is the root storage interface, split into per-entity
// repositories.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	SubmissionRepository() SubmissionRepository
	NodeOutputRepository() NodeOutputRepository
	AlertRepository() AlertRepository
	PendingChangeRepository() PendingChangeRepository
	FrameworkRepository() FrameworkRepository
	SchemaRepository() SchemaRepository
	EvaluationRepository() EvaluationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow graphs.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// SubmissionRepository stores triggering submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	Save(ctx context.Context, submission *models.Submission) error

	// LatestWithData returns the tenant's most recent submission carrying a
	// real payload, used to rehydrate bare trigger submissions.
	LatestWithData(ctx context.Context, tenantID string) (*models.Submission, error)

	// ListPending returns pending submissions across all tenants, oldest
	// first.
	ListPending(ctx context.Context) ([]*models.Submission, error)
}

// NodeOutputRepository stores one output record per (tenant, workflow, node).
type NodeOutputRepository interface {
	Get(ctx context.Context, tenantID, workflowID, nodeID string) (*models.NodeOutputRecord, error)
	ListByWorkflow(ctx context.Context, tenantID, workflowID string) ([]*models.NodeOutputRecord, error)

	// Upsert writes a record, compare-and-swapping on the version counter:
	// expectedVersion is the version the caller read (zero for a first
	// write). On mismatch the write is rejected with ErrVersionConflict and
	// the caller re-reads and retries.
	Upsert(ctx context.Context, record *models.NodeOutputRecord, expectedVersion int) error

	// Reset deletes every record for a tenant's workflow. Records are never
	// deleted otherwise.
	Reset(ctx context.Context, tenantID, workflowID string) error
}

// AlertRepository stores deduplicated operational alerts.
type AlertRepository interface {
	// Upsert inserts the alert or, when one with the same dedup key exists,
	// increments its occurrence count and advances last-seen.
	Upsert(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, limit int) ([]*models.Alert, error)
}

// PendingChangeRepository stores the shared-schema approval queue.
type PendingChangeRepository interface {
	Create(ctx context.Context, change *models.PendingChange) error
	ListByStatus(ctx context.Context, tenantID string, status models.PendingChangeStatus) ([]*models.PendingChange, error)
	UpdateStatus(ctx context.Context, id string, status models.PendingChangeStatus) error
}

// FrameworkRepository stores scoring/rubric artifacts.
type FrameworkRepository interface {
	GetByID(ctx context.Context, id string) (*models.Framework, error)
	Save(ctx context.Context, framework *models.Framework) error
}

// SchemaRepository stores the shared-schema definitions and tenant field
// values.
type SchemaRepository interface {
	Domains(ctx context.Context) ([]*models.SchemaDomain, error)
	FieldDefs(ctx context.Context, domain string) ([]*models.SchemaFieldDef, error)
	SaveFieldDef(ctx context.Context, def *models.SchemaFieldDef) error

	FieldValues(ctx context.Context, tenantID, domain string) ([]*models.FieldValue, error)
	GetFieldValue(ctx context.Context, tenantID, domain, level, path string) (*models.FieldValue, error)

	// SaveFieldValue writes a value, archiving the prior version.
	SaveFieldValue(ctx context.Context, value *models.FieldValue) error
}

// EvaluationRepository stores rolling per-node evaluation history.
type EvaluationRepository interface {
	// Append adds a record and trims the history to the retention bound.
	Append(ctx context.Context, tenantID, workflowID, nodeID string, record *models.EvaluationRecord, retention int) error
	History(ctx context.Context, tenantID, workflowID, nodeID string) ([]*models.EvaluationRecord, error)
}
