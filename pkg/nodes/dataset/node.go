// Package dataset executes dataset nodes: aggregation of a referenced node
// bundle, a live shared-schema snapshot, or the recent entries of a named
// shared cache.
package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

type Executor struct {
	schemas protocol.SchemaStore
	caches  protocol.CacheReader
}

func NewExecutor(schemas protocol.SchemaStore, caches protocol.CacheReader) *Executor {
	return &Executor{schemas: schemas, caches: caches}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeDataset
}

func (e *Executor) Execute(ctx context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Dataset
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("dataset node %s has no dataset configuration", node.ID)
	}

	switch cfg.Mode {
	case models.DatasetModeAggregate:
		return protocol.NodeResult{Output: e.aggregate(in, cfg)}, nil
	case models.DatasetModeSchemaSnapshot:
		snapshot, err := e.schemas.DescribeDomain(ctx, in.TenantID, cfg.Domain)
		if err != nil {
			return protocol.NodeResult{}, fmt.Errorf("failed to snapshot schema domain %s: %w", cfg.Domain, err)
		}

		return protocol.NodeResult{Output: snapshot}, nil
	case models.DatasetModeSharedCache:
		entries, err := e.caches.RecentEntries(ctx, in.TenantID, cfg.Cache, cfg.Limit)
		if err != nil {
			return protocol.NodeResult{}, fmt.Errorf("failed to read shared cache %s: %w", cfg.Cache, err)
		}

		return protocol.NodeResult{Output: strings.Join(entries, "\n---\n")}, nil
	default:
		return protocol.NodeResult{}, fmt.Errorf("dataset node %s has unknown mode %q", node.ID, cfg.Mode)
	}
}

// aggregate concatenates the referenced nodes' outputs, each under a header
// carrying the source node's label.
func (e *Executor) aggregate(in protocol.NodeInput, cfg *models.DatasetConfig) string {
	var b strings.Builder

	for _, nodeID := range cfg.NodeIDs {
		output := in.Results[nodeID]
		if strings.TrimSpace(output) == "" {
			continue
		}

		label := nodeID
		if in.Workflow != nil {
			if source := in.Workflow.Node(nodeID); source != nil {
				label = source.Label
			}
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "## %s\n%s", label, output)
	}

	return b.String()
}
