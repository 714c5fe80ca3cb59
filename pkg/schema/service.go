// Package schema implements the tenant-scoped shared-schema ("master data")
// store on top of the persistence layer: live domain snapshots for prompt
// consumption, versioned field writes, and agent change-plan application
// gated by the pending-change approval queue.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/persistence"
)

// Service implements the shared-schema collaborator.
type Service struct {
	schemas persistence.SchemaRepository
	pending persistence.PendingChangeRepository
	logger  *slog.Logger
}

func NewService(logger *slog.Logger, schemas persistence.SchemaRepository, pending persistence.PendingChangeRepository) *Service {
	return &Service{
		schemas: schemas,
		pending: pending,
		logger:  logger.With("module", "schema"),
	}
}

// DescribeDomain renders a textual snapshot of one domain: its field
// definitions and the tenant's current values, grouped by level.
func (s *Service) DescribeDomain(ctx context.Context, tenantID, domain string) (string, error) {
	defs, err := s.schemas.FieldDefs(ctx, domain)
	if err != nil {
		return "", fmt.Errorf("failed to load field definitions: %w", err)
	}

	values, err := s.schemas.FieldValues(ctx, tenantID, domain)
	if err != nil {
		return "", fmt.Errorf("failed to load field values: %w", err)
	}

	valueByKey := make(map[string]*models.FieldValue, len(values))
	for _, value := range values {
		valueByKey[value.Level+"\x00"+value.Path] = value
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Domain: %s\n", domain)

	level := "\x00"

	for _, def := range defs {
		if def.Level != level {
			level = def.Level

			if level == "" {
				b.WriteString("\n[default]\n")
			} else {
				fmt.Fprintf(&b, "\n[%s]\n", level)
			}
		}

		fmt.Fprintf(&b, "- %s", def.Path)

		if def.Description != "" {
			fmt.Fprintf(&b, " (%s)", def.Description)
		}

		if value, ok := valueByKey[def.Level+"\x00"+def.Path]; ok {
			fmt.Fprintf(&b, ": %s", value.Value)
		} else {
			b.WriteString(": <empty>")
		}

		b.WriteString("\n")
	}

	// Values without a matching definition still belong to the snapshot.
	for _, value := range values {
		if !hasDef(defs, value.Level, value.Path) {
			fmt.Fprintf(&b, "- %s: %s\n", value.Path, value.Value)
		}
	}

	return b.String(), nil
}

func hasDef(defs []*models.SchemaFieldDef, level, path string) bool {
	for _, def := range defs {
		if def.Level == level && def.Path == path {
			return true
		}
	}

	return false
}

// UpsertFieldValue writes a field value, versioning the prior value.
func (s *Service) UpsertFieldValue(ctx context.Context, value models.FieldValue) error {
	err := s.schemas.SaveFieldValue(ctx, &value)
	if err != nil {
		return fmt.Errorf("failed to save field value: %w", err)
	}

	return nil
}

// ApplyChangePlan applies a validated change plan. In schema-only mode every
// entry creates or updates a field definition; data writes happen only in
// data-write mode. Writes that are not auto-approved are queued as pending
// changes instead of being applied.
func (s *Service) ApplyChangePlan(ctx context.Context, tenantID string, plan models.ChangePlan,
	mode models.AgentApplyMode, autoApprove bool, prov models.ChangeProvenance,
) (models.ApplyReport, error) {
	var report models.ApplyReport

	changes := make([]models.ProposedChange, 0, len(plan.ValidatedChanges)+len(plan.NewStructure))
	changes = append(changes, plan.ValidatedChanges...)
	changes = append(changes, plan.NewStructure...)

	source := fmt.Sprintf("%s:%s", prov.WorkflowID, prov.NodeID)

	for _, change := range changes {
		if change.Domain == "" || change.Path == "" {
			report.Skipped++

			continue
		}

		err := s.schemas.SaveFieldDef(ctx, &models.SchemaFieldDef{
			Domain:      change.Domain,
			Level:       change.Level,
			Path:        change.Path,
			Description: change.Reason,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to save field definition",
				"domain", change.Domain,
				"path", change.Path,
				"error", err)

			report.Skipped++

			continue
		}

		if mode == models.AgentApplySchemaOnly || change.Value == "" {
			report.Applied++

			continue
		}

		if !autoApprove {
			err := s.pending.Create(ctx, &models.PendingChange{
				TenantID:   tenantID,
				Domain:     change.Domain,
				Level:      change.Level,
				Path:       change.Path,
				Value:      change.Value,
				Provenance: prov,
				Status:     models.PendingChangeStatusPending,
				CreatedAt:  time.Now().UTC(),
				UpdatedAt:  time.Now().UTC(),
			})
			if err != nil {
				return report, fmt.Errorf("failed to queue pending change: %w", err)
			}

			report.Pending++

			continue
		}

		err = s.schemas.SaveFieldValue(ctx, &models.FieldValue{
			TenantID: tenantID,
			Domain:   change.Domain,
			Level:    change.Level,
			Path:     change.Path,
			Value:    change.Value,
			Source:   source,
		})
		if err != nil {
			return report, fmt.Errorf("failed to write field value: %w", err)
		}

		report.Applied++
	}

	return report, nil
}
