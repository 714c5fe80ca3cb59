// Package ingest executes the workflow's submission entry point: its output
// is the triggering submission's payload.
package ingest

import (
	"context"
	"fmt"
	"slices"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeIngest
}

// Execute emits the submission payload. When the node restricts its source
// classifications and the submission does not match, the node produces no
// output and downstream dirtiness is unaffected.
func (e *Executor) Execute(_ context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	if in.Submission == nil {
		return protocol.NodeResult{}, fmt.Errorf("ingest node %s executed without a submission", node.ID)
	}

	if cfg := node.Config.Ingest; cfg != nil && len(cfg.Sources) > 0 {
		if !slices.Contains(cfg.Sources, in.Submission.Source) {
			return protocol.NodeResult{}, nil
		}
	}

	return protocol.NodeResult{Output: in.Submission.Payload}, nil
}
