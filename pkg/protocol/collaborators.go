package protocol

import (
	"context"

	"github.com/cascadehq/cascade/pkg/models"
)

// SchemaStore is the tenant-scoped shared-schema ("master data")
// collaborator.
type SchemaStore interface {
	// DescribeDomain renders a live textual snapshot of a domain's structure
	// and current values for prompt consumption.
	DescribeDomain(ctx context.Context, tenantID, domain string) (string, error)

	// UpsertFieldValue writes a field value, versioning the prior value.
	UpsertFieldValue(ctx context.Context, value models.FieldValue) error

	// ApplyChangePlan applies a validated agent change plan. Writes that are
	// not auto-approved land in the pending-change queue.
	ApplyChangePlan(ctx context.Context, tenantID string, plan models.ChangePlan,
		mode models.AgentApplyMode, autoApprove bool, prov models.ChangeProvenance) (models.ApplyReport, error)
}

// CacheReader reads recent entries of a named shared cache.
type CacheReader interface {
	RecentEntries(ctx context.Context, tenantID, cache string, limit int) ([]string, error)
}

// FrameworkSource resolves stored scoring/rubric artifacts.
type FrameworkSource interface {
	FrameworkByID(ctx context.Context, id string) (*models.Framework, error)
}
