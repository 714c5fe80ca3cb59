// Package prompt executes completion-provider nodes: it assembles the
// configured parts into a single request, calls the provider, and scores the
// response.
package prompt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/parts"
	"github.com/cascadehq/cascade/pkg/protocol"
)

// Evaluator scores a generated output against the prompt that produced it.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt, output string) (*models.EvaluationRecord, error)
}

// Executor runs prompt nodes.
type Executor struct {
	provider  protocol.CompletionProvider
	evaluator Evaluator
	logger    *slog.Logger
}

// NewExecutor creates a prompt executor. The evaluator may be nil, in which
// case outputs are never scored.
func NewExecutor(logger *slog.Logger, provider protocol.CompletionProvider, evaluator Evaluator) *Executor {
	return &Executor{
		provider:  provider,
		evaluator: evaluator,
		logger:    logger.With("module", "nodes.prompt"),
	}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypePrompt
}

// Execute assembles and issues the completion call. When any dependency
// carries the stop sentinel the node emits the sentinel itself and no
// provider call is made.
func (e *Executor) Execute(ctx context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Prompt
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("prompt node %s has no prompt configuration", node.ID)
	}

	if parts.ContainsStopSignal(in, cfg.Parts) {
		e.logger.InfoContext(ctx, "stop signal propagated", "node_id", node.ID)

		return protocol.NodeResult{Output: models.StopSignal}, nil
	}

	promptText := parts.Render(in, cfg.Parts)

	response, err := e.provider.Complete(ctx, protocol.CompletionRequest{
		Model:     cfg.Model,
		Messages:  []protocol.Message{{Role: "user", Content: promptText}},
		MaxTokens: cfg.MaxTokens,
		WebSearch: cfg.WebSearch,
	})
	if err != nil {
		return protocol.NodeResult{}, fmt.Errorf("completion failed: %w", err)
	}

	result := protocol.NodeResult{
		Output:    parts.StripCodeFence(response.Text),
		Truncated: response.FinishReason == protocol.FinishReasonTruncated,
	}

	if e.evaluator != nil && !cfg.EvaluationDisabled {
		evaluation, err := e.evaluator.Evaluate(ctx, promptText, result.Output)
		if err != nil {
			e.logger.WarnContext(ctx, "evaluation failed", "node_id", node.ID, "error", err)
		} else {
			result.Evaluation = evaluation
		}
	}

	return result, nil
}
