// Package agent executes schema-mapping agent nodes: they parse a source
// node's output as a structured change plan, validate it, and submit it to
// the shared-schema store. Malformed plans produce a diagnostic output, not
// a failure.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/parts"
	"github.com/cascadehq/cascade/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// changePlanSchema is the required shape of an agent change plan: a summary
// plus at least one of the two change lists.
const changePlanSchema = `{
	"type": "object",
	"required": ["summary"],
	"properties": {
		"summary": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1
		},
		"validated_changes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["domain", "path"],
				"properties": {
					"domain": {"type": "string", "minLength": 1},
					"level": {"type": "string"},
					"path": {"type": "string", "minLength": 1},
					"value": {"type": "string"},
					"reason": {"type": "string"}
				}
			}
		},
		"new_structure": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["domain", "path"],
				"properties": {
					"domain": {"type": "string", "minLength": 1},
					"level": {"type": "string"},
					"path": {"type": "string", "minLength": 1},
					"value": {"type": "string"},
					"reason": {"type": "string"}
				}
			}
		}
	},
	"anyOf": [
		{"required": ["validated_changes"]},
		{"required": ["new_structure"]}
	]
}`

type Executor struct {
	schemas protocol.SchemaStore
	schema  *gojsonschema.Schema
	logger  *slog.Logger
}

func NewExecutor(logger *slog.Logger, schemas protocol.SchemaStore) (*Executor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(changePlanSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile change plan schema: %w", err)
	}

	return &Executor{
		schemas: schemas,
		schema:  schema,
		logger:  logger.With("module", "nodes.agent"),
	}, nil
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeAgent
}

func (e *Executor) Execute(ctx context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Agent
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("agent node %s has no agent configuration", node.ID)
	}

	source := in.Results[cfg.SourceNodeID]

	plan, diagnostic := e.parsePlan(ctx, node.ID, source)
	if diagnostic != "" {
		return protocol.NodeResult{Output: models.ErrorMarker(diagnostic)}, nil
	}

	mode := cfg.Mode
	if mode == "" {
		mode = models.AgentApplySchemaOnly
	}

	workflowID := ""
	if in.Workflow != nil {
		workflowID = in.Workflow.ID
	}

	report, err := e.schemas.ApplyChangePlan(ctx, in.TenantID, *plan, mode, cfg.AutoApprove, models.ChangeProvenance{
		WorkflowID: workflowID,
		NodeID:     node.ID,
	})
	if err != nil {
		return protocol.NodeResult{}, fmt.Errorf("failed to apply change plan: %w", err)
	}

	var b strings.Builder

	for _, line := range plan.Summary {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	fmt.Fprintf(&b, "\napplied=%d pending=%d skipped=%d", report.Applied, report.Pending, report.Skipped)

	return protocol.NodeResult{Output: b.String()}, nil
}

// parsePlan extracts and validates the change plan. A non-empty diagnostic
// means the plan is unusable and the collaborator must not be called.
func (e *Executor) parsePlan(ctx context.Context, nodeID, source string) (*models.ChangePlan, string) {
	if strings.TrimSpace(source) == "" {
		return nil, "agent source produced no output"
	}

	cleaned := parts.StripCodeFence(source)

	if !balancedBrackets(cleaned) {
		e.logger.WarnContext(ctx, "change plan appears truncated", "node_id", nodeID)

		return nil, "change plan appears truncated: unbalanced brackets"
	}

	validation, err := e.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Sprintf("change plan is not valid JSON: %v", err)
	}

	if !validation.Valid() {
		reasons := make([]string, 0, len(validation.Errors()))
		for _, issue := range validation.Errors() {
			reasons = append(reasons, issue.String())
		}

		e.logger.WarnContext(ctx, "change plan failed validation",
			"node_id", nodeID,
			"issues", strings.Join(reasons, "; "))

		return nil, fmt.Sprintf("change plan failed validation: %s", strings.Join(reasons, "; "))
	}

	var plan models.ChangePlan

	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Sprintf("change plan is not parseable: %v", err)
	}

	return &plan, ""
}

// balancedBrackets is a heuristic detector for structured output cut off
// mid-generation: every opened brace or bracket must close, outside of
// string literals.
func balancedBrackets(text string) bool {
	var (
		depth    int
		inString bool
		escaped  bool
	)

	for _, r := range text {
		if escaped {
			escaped = false

			continue
		}

		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--

				if depth < 0 {
					return false
				}
			}
		}
	}

	return depth == 0 && !inString
}
