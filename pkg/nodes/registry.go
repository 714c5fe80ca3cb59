// Package nodes assembles the per-type node executors into the dispatch
// table the engine runs cascades with.
package nodes

import (
	"fmt"
	"log/slog"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/agent"
	"github.com/cascadehq/cascade/pkg/nodes/dataset"
	"github.com/cascadehq/cascade/pkg/nodes/fragment"
	"github.com/cascadehq/cascade/pkg/nodes/framework"
	"github.com/cascadehq/cascade/pkg/nodes/ingest"
	"github.com/cascadehq/cascade/pkg/nodes/prompt"
	"github.com/cascadehq/cascade/pkg/nodes/variable"
	"github.com/cascadehq/cascade/pkg/nodes/webfetch"
	"github.com/cascadehq/cascade/pkg/protocol"
)

// Collaborators are the external services executors depend on. Retriever
// and Evaluator may be nil; the matching features degrade gracefully.
type Collaborators struct {
	Completion protocol.CompletionProvider
	Retriever  protocol.WebRetriever
	Schemas    protocol.SchemaStore
	Caches     protocol.CacheReader
	Frameworks protocol.FrameworkSource
	Evaluator  prompt.Evaluator
}

// Registry maps each executable node type to its executor.
type Registry map[models.NodeType]protocol.NodeExecutor

// NewRegistry builds the dispatch table covering every executable node
// type.
func NewRegistry(logger *slog.Logger, c Collaborators) (Registry, error) {
	agentExecutor, err := agent.NewExecutor(logger, c.Schemas)
	if err != nil {
		return nil, fmt.Errorf("failed to build agent executor: %w", err)
	}

	executors := []protocol.NodeExecutor{
		ingest.NewExecutor(),
		prompt.NewExecutor(logger, c.Completion, c.Evaluator),
		fragment.NewExecutor(),
		dataset.NewExecutor(c.Schemas, c.Caches),
		variable.NewExecutor(logger, c.Schemas),
		framework.NewExecutor(logger, c.Frameworks),
		webfetch.NewExecutor(logger, c.Retriever),
		agentExecutor,
	}

	registry := make(Registry, len(executors))
	for _, executor := range executors {
		registry[executor.Type()] = executor
	}

	return registry, nil
}

// For returns the executor for a node type.
func (r Registry) For(nodeType models.NodeType) (protocol.NodeExecutor, error) {
	executor, ok := r[nodeType]
	if !ok {
		return nil, fmt.Errorf("no executor for node type %q", nodeType)
	}

	return executor, nil
}
