// Package fragment executes prompt-fragment nodes: pure concatenation of
// text, variables, and dependency outputs, with no external call.
package fragment

import (
	"context"
	"fmt"

	"github.com/cascadehq/cascade/pkg/models"
	"github.com/cascadehq/cascade/pkg/nodes/parts"
	"github.com/cascadehq/cascade/pkg/protocol"
)

type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Type() models.NodeType {
	return models.NodeTypeFragment
}

func (e *Executor) Execute(_ context.Context, in protocol.NodeInput, node *models.Node) (protocol.NodeResult, error) {
	cfg := node.Config.Fragment
	if cfg == nil {
		return protocol.NodeResult{}, fmt.Errorf("fragment node %s has no fragment configuration", node.ID)
	}

	return protocol.NodeResult{Output: parts.Render(in, cfg.Parts)}, nil
}
