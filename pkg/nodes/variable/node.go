// Package variable executes variable nodes: either a static lookup in the
// workflow's variables, or a schema-mapping transform that extracts values
// from source node outputs and upserts them into the shared-schema store.
package variable

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

type Executor struct {
	schemas protocol.SchemaStore
	logger  *slog.Logger
}

func NewExecutor(logger *slog.Logger, schemas protocol.SchemaStore) *Executor {
	return &Executor{
		schemas: schemas,
		logger:  logger.With("module", "nodes.variable"),
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeVariable
}

func (e *Executor) Execute(ctx context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Variable
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("variable node %s has no variable configuration", node.ID)
	}

	if len(cfg.Mappings) == 0 {
		return protocol.NodeResult{Output: in.Variables[cfg.Name]}, nil
	}

	return e.applyMappings(ctx, in, node, cfg.Mappings)
}

// applyMappings extracts each mapped value from its source node's output and
// writes it to the shared schema. Per-mapping failures are annotated, never
// fatal.
func (e *Executor) applyMappings(ctx context.Context, in protocol.NodeInput, node *models.Node, mappings []models.SchemaMapping) (protocol.NodeResult, error) {
	var (
		lines  []string
		failed []string
	)

	workflowID := ""
	if in.Workflow != nil {
		workflowID = in.Workflow.ID
	}

	for _, mapping := range mappings {
		value, err := ExtractPath(in.Results[mapping.NodeID], mapping.Path)
		if err != nil {
			e.logger.WarnContext(ctx, "mapping extraction failed",
				"node_id", node.ID,
				"source", mapping.NodeID,
				"path", mapping.Path,
				"error", err)

			failed = append(failed, mapping.Field)
			lines = append(lines, fmt.Sprintf("%s.%s: extraction failed (%v)", mapping.Domain, mapping.Field, err))

			continue
		}

		err = e.schemas.UpsertFieldValue(ctx, models.FieldValue{
			TenantID: in.TenantID,
			Domain:   mapping.Domain,
			Level:    mapping.Level,
			Path:     mapping.Field,
			Value:    value,
			Source:   workflowID + ":" + node.ID,
		})
		if err != nil {
			e.logger.ErrorContext(ctx, "mapping write failed",
				"node_id", node.ID,
				"field", mapping.Field,
				"error", err)

			failed = append(failed, mapping.Field)
			lines = append(lines, fmt.Sprintf("%s.%s: write failed (%v)", mapping.Domain, mapping.Field, err))

			continue
		}

		lines = append(lines, fmt.Sprintf("%s.%s = %s", mapping.Domain, mapping.Field, value))
	}

	return protocol.NodeResult{
		Output:           strings.Join(lines, "\n"),
		LowQualityFields: failed,
	}, nil
}
