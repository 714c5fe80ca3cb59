// Package framework executes framework nodes: they inject a structured
// description of a stored scoring/rubric artifact into the graph.
package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

type Executor struct {
	frameworks protocol.FrameworkSource
	logger     *slog.Logger
}

func NewExecutor(logger *slog.Logger, frameworks protocol.FrameworkSource) *Executor {
	return &Executor{
		frameworks: frameworks,
		logger:     logger.With("module", "nodes.framework"),
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeFramework
}

func (e *Executor) Execute(ctx context.Context, _ protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Framework
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("framework node %s has no framework configuration", node.ID)
	}

	framework, err := e.frameworks.FrameworkByID(ctx, cfg.FrameworkID)
	if err != nil {
		return protocol.NodeResult{}, fmt.Errorf("failed to load framework %s: %w", cfg.FrameworkID, err)
	}

	return protocol.NodeResult{Output: describe(ctx, e.logger, framework)}, nil
}

// describe renders the framework for prompt consumption, degrading to the
// raw stored schema text when it is not parseable JSON.
func describe(ctx context.Context, logger *slog.Logger, framework *models.Framework) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", framework.Name)

	if framework.Description != "" {
		b.WriteString(framework.Description)
		b.WriteString("\n")
	}

	if framework.Schema == "" {
		return b.String()
	}

	var parsed any

	if err := json.Unmarshal([]byte(framework.Schema), &parsed); err != nil {
		logger.WarnContext(ctx, "framework schema is not valid JSON, using raw text",
			"framework_id", framework.ID,
			"error", err)

		b.WriteString("\n")
		b.WriteString(framework.Schema)

		return b.String()
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		b.WriteString("\n")
		b.WriteString(framework.Schema)

		return b.String()
	}

	b.WriteString("\n```json\n")
	b.Write(pretty)
	b.WriteString("\n```")

	return b.String()
}
